package pricefeed

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

// DynamoSource scans a table mirroring the upstream prices, keyed by SiteId
// and FuelId with the price in P and the transaction time in D.
type DynamoSource struct {
	db    dynamodbiface.DynamoDBAPI
	table string
	clock clockwork.Clock
}

// NewDynamoClient builds a client for region. A non-empty endpoint points it
// at DynamoDB Local or another compatible server.
func NewDynamoClient(region, endpoint string) (dynamodbiface.DynamoDBAPI, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return dynamodb.New(sess), nil
}

func NewDynamoSource(db dynamodbiface.DynamoDBAPI, table string, clock clockwork.Clock) *DynamoSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DynamoSource{db: db, table: table, clock: clock}
}

func (s *DynamoSource) Name() string { return "dynamodb" }

type priceItem struct {
	SiteID int    `dynamodbav:"SiteId"`
	FuelID int    `dynamodbav:"FuelId"`
	Method string `dynamodbav:"M"`
	Date   string `dynamodbav:"D"`
	// Number keeps the exact digits of P.
	Price dynamodbattribute.Number `dynamodbav:"P"`
}

func (s *DynamoSource) Fetch(ctx context.Context) ([]types.PriceUpdate, error) {
	var (
		records []record
		convErr error
	)
	input := &dynamodb.ScanInput{TableName: aws.String(s.table)}
	err := s.db.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, _ bool) bool {
		var items []priceItem
		if err := dynamodbattribute.UnmarshalListOfMaps(page.Items, &items); err != nil {
			convErr = fmt.Errorf("unmarshal items: %w", err)
			return false
		}
		for _, it := range items {
			price, err := decimal.NewFromString(it.Price.String())
			if err != nil {
				convErr = fmt.Errorf("site %d fuel %d: price %q: %w", it.SiteID, it.FuelID, it.Price, err)
				return false
			}
			records = append(records, record{
				SiteID:      it.SiteID,
				FuelID:      it.FuelID,
				Price:       price,
				Transaction: it.Date,
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	if convErr != nil {
		return nil, convErr
	}
	return toUpdates(records, s.clock.Now()), nil
}
