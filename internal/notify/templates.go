package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/pkg/errors"
)

const (
	brand        = "Glowpoint"
	feedbackURL  = "https://glowpoint.org"
	salonAddress = "NSCI Building, Km. 37 Pulong Buhangin, Santa Maria, Bulacan"
	salonContact = "09300784517"
)

type emailContent struct {
	Subject string
	HTML    string
	Text    string
}

func formatDate(p Payload) string { return p.AppointmentAt.Format("Monday, January 2, 2006") }

func formatTime(p Payload) string { return p.AppointmentAt.Format("3:04 PM") }

func servicesList(p Payload) string {
	if len(p.Services) == 0 {
		return "Not specified"
	}
	return strings.Join(p.Services, ", ")
}

func balance(p Payload) float64 {
	if p.Balance < 0 {
		return 0
	}
	return p.Balance
}

// smsText renders the SMS body. Kinds without an SMS variant return "".
func smsText(kind Kind, p Payload) string {
	switch kind {
	case KindConfirmation:
		return fmt.Sprintf("%s: Hello %s! Your appointment on %s at %s is confirmed! Remaining balance: P%.2f. Please arrive on time. We look forward to seeing you!",
			brand, p.displayName(), p.AppointmentAt.Format("Jan 2, 2006"), formatTime(p), balance(p))
	case KindReminder:
		return fmt.Sprintf("%s Reminder: Your appointment is in 2 hours at %s. Please be on time. See you soon! Don't forget to check %s to leave your feedback after the appointment!",
			brand, formatTime(p), feedbackURL)
	case KindNowServing:
		return fmt.Sprintf("%s: Hi! It's your turn soon! Your queue number is %d. Please proceed to the counter in 5-10 minutes.",
			brand, p.Position)
	default:
		return ""
	}
}

var emailHTML = template.Must(template.New("email").Parse(`{{define "frame"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; background-color: #fffbeb; padding: 20px; border-radius: 10px;">
<div style="text-align: center; margin-bottom: 30px;"><h1 style="color: {{.Color}};">{{.Title}}</h1></div>
<div style="background-color: white; padding: 25px; border-radius: 8px; border: 2px solid #fbbf24;">{{template "body" .}}</div>
</div>{{end}}
{{define "confirmation"}}<p>Hi {{.Name}},</p><p>Your appointment on <strong>{{.Date}}</strong> at <strong>{{.Time}}</strong> is confirmed.</p><p><strong>Services:</strong> {{.Services}}<br><strong>Remaining balance:</strong> &#8369;{{printf "%.2f" .Balance}}</p><p>{{.Address}}<br>Contact: {{.Contact}}</p>{{end}}
{{define "reminder"}}<p>Your beauty session is in 2 hours!</p><p><strong>Today at:</strong> {{.Time}}<br><strong>Services:</strong> {{.Services}}<br><strong>Balance to pay:</strong> &#8369;{{printf "%.2f" .Balance}}</p><p>Please arrive on time! After 15 minutes of being late, the appointment may be considered void.</p>{{end}}
{{define "cancellation"}}<p>Hi {{.Name}},</p><p>Your appointment scheduled for <strong>{{.Date}}</strong> at <strong>{{.Time}}</strong> has been cancelled.</p><p>If you did not request this cancellation, please contact us.</p>{{end}}
{{define "reschedule"}}<p>Hi {{.Name}},</p><p>Your appointment has been rescheduled.</p><p><strong>Date:</strong> {{.Date}}<br><strong>Time:</strong> {{.Time}}</p>{{end}}
{{define "now_serving"}}<p style="font-size: 18px;">Hi {{.Name}}, your queue number is now being called!</p><p style="font-size: 48px; font-weight: bold; color: #d97706;">#{{.Position}}</p><p style="font-size: 18px;">Please proceed to the counter.</p>{{end}}`))

type htmlView struct {
	Title    string
	Color    string
	Name     string
	Date     string
	Time     string
	Services string
	Balance  float64
	Position int
	Address  string
	Contact  string
}

func renderEmail(kind Kind, p Payload) (emailContent, error) {
	view := htmlView{
		Color:    "#d97706",
		Name:     p.displayName(),
		Date:     formatDate(p),
		Time:     formatTime(p),
		Services: servicesList(p),
		Balance:  balance(p),
		Position: p.Position,
		Address:  salonAddress,
		Contact:  salonContact,
	}

	var content emailContent
	switch kind {
	case KindConfirmation:
		view.Title = "Appointment Confirmed"
		content.Subject = "Your appointment is confirmed"
		content.Text = fmt.Sprintf("Hi %s,\n\nYour appointment on %s at %s is confirmed.\n\nServices: %s\nRemaining balance: ₱%.2f\n\nLocation: %s\nContact: %s",
			view.Name, view.Date, view.Time, view.Services, view.Balance, salonAddress, salonContact)
	case KindReminder:
		view.Title = "Appointment Reminder"
		content.Subject = "Reminder: Your beauty appointment is in 2 hours!"
		content.Text = fmt.Sprintf("Appointment Reminder - Your beauty session is in 2 hours!\n\nDetails:\n- Today at: %s\n- Services: %s\n- Balance to pay: ₱%.2f\n\nLocation: %s\nContact: %s\n\nPlease arrive on time! After 15 minutes of being late, the appointment may be considered void.",
			view.Time, view.Services, view.Balance, salonAddress, salonContact)
	case KindCancellation:
		view.Title = "Appointment Cancelled"
		view.Color = "#dc2626"
		content.Subject = "Appointment Cancelled"
		content.Text = fmt.Sprintf("Hi %s,\n\nYour appointment scheduled for %s at %s has been cancelled.\n\nWe hope to see you again soon!",
			view.Name, view.Date, view.Time)
	case KindReschedule:
		view.Title = "Appointment Rescheduled"
		content.Subject = "Appointment Rescheduled"
		content.Text = fmt.Sprintf("Hi %s,\n\nYour appointment has been rescheduled to %s at %s.\n\nWe look forward to seeing you!",
			view.Name, view.Date, view.Time)
	case KindNowServing:
		view.Title = "It's Your Turn!"
		content.Subject = "It's Your Turn at " + brand + "!"
		content.Text = fmt.Sprintf("Hi %s, it's your turn! Your queue number is #%d. Please proceed to the counter.",
			view.Name, p.Position)
	default:
		return emailContent{}, errors.Errorf("unknown email type: %s", kind)
	}

	tmpl, err := emailHTML.Clone()
	if err != nil {
		return emailContent{}, errors.Wrap(err, "clone email template")
	}
	if _, err := tmpl.New("body").Parse(`{{template "` + string(kind) + `" .}}`); err != nil {
		return emailContent{}, errors.Wrap(err, "bind email body")
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "frame", view); err != nil {
		return emailContent{}, errors.Wrap(err, "render email")
	}
	content.HTML = buf.String()
	return content, nil
}
