package controller

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/pages/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

const (
	maxNameLen    = 100
	maxEmailLen   = 200
	maxSubjectLen = 150
	maxMessageLen = 2000
	minMessageLen = 10

	// honeypotField is hidden from people; bots that fill it get a fake success.
	honeypotField = "website"
)

func (c *pagesControllerImpl) contactMeta(r *http.Request) views.Meta {
	meta := c.site.Meta(r, "Contact", "Report a wrong price, suggest a station or say hello.")
	meta.Active = "contact"
	meta.Breadcrumbs = []views.Crumb{{Label: "Home", URL: "/"}, {Label: "Contact"}}
	return meta
}

func (c *pagesControllerImpl) handleContact(w http.ResponseWriter, r *http.Request) {
	data := &views.ContactData{
		Meta: c.contactMeta(r),
		Sent: r.URL.Query().Get("sent") == "1",
	}
	c.renderContact(w, r, http.StatusOK, data)
}

func (c *pagesControllerImpl) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid form")
		return
	}

	form := readContactForm(r)
	data := &views.ContactData{Meta: c.contactMeta(r), Form: form}

	if r.PostFormValue(honeypotField) != "" {
		slog.Info("contact: honeypot triggered", "client", utils.ClientIP(r, c.proxies))
		c.contactAccepted(w, r, data)
		return
	}

	if errs := validateContact(form); len(errs) > 0 {
		data.Errors = errs
		c.renderContact(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	client := utils.ClientIP(r, c.proxies)
	if !c.throttle.Allow(client) {
		wait := c.throttle.RetryAfter(client)
		data.RetryAfter = retryText(wait)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.renderContact(w, r, http.StatusTooManyRequests, data)
		return
	}

	msg := repository.ContactMessage{
		ID:        c.newID(),
		Name:      form.Name,
		Email:     form.Email,
		Subject:   form.Subject,
		Message:   form.Message,
		CreatedAt: c.clock.Now(),
	}
	if err := c.messages.InsertMessage(msg); err != nil {
		slog.Error("contact: store message failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	slog.Info("contact: message stored", "id", msg.ID)
	c.contactAccepted(w, r, data)
}

// contactAccepted swaps in the thank-you fragment for htmx and redirects
// plain form posts so a reload does not resubmit.
func (c *pagesControllerImpl) contactAccepted(w http.ResponseWriter, r *http.Request, data *views.ContactData) {
	if utils.IsHTMX(r) {
		data.Form = views.ContactForm{}
		data.Sent = true
		c.renderContact(w, r, http.StatusOK, data)
		return
	}
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}

func (c *pagesControllerImpl) renderContact(w http.ResponseWriter, r *http.Request, status int, data *views.ContactData) {
	render := views.RenderContact
	if utils.IsHTMX(r) {
		render = views.RenderContactForm
	}
	var buf bytes.Buffer
	if err := render(&buf, data); err != nil {
		slog.Error("pages: render contact failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, status, &buf)
}

func readContactForm(r *http.Request) views.ContactForm {
	return views.ContactForm{
		Name:    format.Sanitize(r.PostFormValue("name"), maxNameLen),
		Email:   format.Sanitize(r.PostFormValue("email"), maxEmailLen),
		Subject: format.Sanitize(r.PostFormValue("subject"), maxSubjectLen),
		Message: sanitizeMultiline(r.PostFormValue("message"), maxMessageLen),
	}
}

// sanitizeMultiline is Sanitize applied per line, keeping paragraph breaks.
func sanitizeMultiline(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var lines []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = format.Sanitize(line, 0)
		if line == "" {
			if !blank && len(lines) > 0 {
				lines = append(lines, "")
			}
			blank = true
			continue
		}
		lines = append(lines, line)
		blank = false
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if max > 0 && utf8.RuneCountInString(out) > max {
		out = strings.TrimSpace(string([]rune(out)[:max]))
	}
	return out
}

func validateContact(f views.ContactForm) map[string]string {
	errs := make(map[string]string)
	if f.Name == "" {
		errs["name"] = "Please tell us your name."
	}
	if f.Email == "" {
		errs["email"] = "Please enter your email address."
	} else if !validEmail(f.Email) {
		errs["email"] = "That doesn't look like an email address."
	}
	switch n := utf8.RuneCountInString(f.Message); {
	case n == 0:
		errs["message"] = "Please write a message."
	case n < minMessageLen:
		errs["message"] = "Your message is a little short."
	}
	return errs
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domain, ok := strings.Cut(s, "@")
	return ok && strings.Contains(domain, ".")
}

func retryText(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	switch {
	case secs <= 1:
		return "a second"
	case secs < 60:
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int(math.Ceil(float64(secs) / 60))
	if mins == 1 {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
