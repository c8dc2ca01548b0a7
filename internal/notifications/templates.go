package notifications

import (
	"bytes"
	"fmt"
	"text/template"

	"tourdesk/pkg/model"
)

// Email is one rendered message.
type Email struct {
	To      string
	Subject string
	Body    string
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]emailTemplate{
	model.EventBookingRequested: {
		subject: template.Must(template.New("requested.subject").Parse(
			`New booking request - {{.BookingReference}}`)),
		body: template.Must(template.New("requested.body").Parse(`A new booking request has arrived.

Booking reference: {{.BookingReference}}
Customer: {{.Customer.Name}} <{{.Customer.Email}}>, {{.Customer.Phone}}
Tour: {{.TourReference}}
Preferred date: {{.PreferredDate}}
Number of guests: {{.NumberOfPeople}}
Quoted total: {{printf "%.2f" .QuotedTotal}}

Confirm or cancel it from the admin console.
`)),
	},
	model.EventBookingConfirmed: {
		subject: template.Must(template.New("confirmed.subject").Parse(
			`Booking Confirmation - {{.BookingReference}}`)),
		body: template.Must(template.New("confirmed.body").Parse(`Dear {{.Customer.Name}},

Your booking {{.BookingReference}} is confirmed.
{{with .Confirmation}}
Date: {{.ConfirmedDate}}{{if .ConfirmedTime}} at {{.ConfirmedTime}}{{end}}
{{- if .MeetingPoint}}
Meeting point: {{.MeetingPoint}}{{end}}
Final price: {{printf "%.2f" .FinalPrice}}
{{- if .AdditionalNotes}}

{{.AdditionalNotes}}{{end}}
{{end}}
Number of guests: {{$.NumberOfPeople}}

Best regards,
The tours team
`)),
	},
}

// Render builds the email for event. Requests go to the operator inbox,
// confirmations to the customer.
func Render(event *model.BookingEvent, operatorEmail string) (*Email, error) {
	tmpl, ok := templates[event.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event.EventType)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, event); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, event); err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	to := event.Customer.Email
	if event.EventType == model.EventBookingRequested {
		to = operatorEmail
	}
	return &Email{To: to, Subject: subject.String(), Body: body.String()}, nil
}
