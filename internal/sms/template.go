package sms

import (
	"strings"
	"text/template"

	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

var readyTmpl = template.Must(template.New("ready").Parse(
	`Hello {{.Customer}}, your {{.Model}} is repaired and ready for pickup` +
		`{{if .Shop}} at {{.Shop}}{{end}}. Thank you!`))

// ReadyForPickup renders the notification sent when a repair is completed.
func ReadyForPickup(job *models.RepairJob, shopName string) (string, error) {
	var b strings.Builder
	err := readyTmpl.Execute(&b, struct {
		Customer, Model, Shop string
	}{job.CustomerName, job.Model, shopName})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
