// Package form validates user input before anything is sent to the prediction service.
package form

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Alias1177/MSMEPredictor/internal/present"
	"github.com/Alias1177/MSMEPredictor/models"
)

const MsgInvalidNumber = "Please enter a valid number"

// FieldErrors maps a field name to its validation message
type FieldErrors map[string]string

// ManualField is one input of the manual form
type ManualField struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
	Error       string
}

// ManualForm holds the raw manual form input and its validation state
type ManualForm struct {
	Values map[string]string
	Errors FieldErrors
}

// NewManualForm returns an empty form
func NewManualForm() *ManualForm {
	return &ManualForm{Values: map[string]string{}, Errors: FieldErrors{}}
}

// Fields returns the inputs in form order for rendering
func (f *ManualForm) Fields() []ManualField {
	fields := make([]ManualField, len(models.PredictionFields))
	for i, name := range models.PredictionFields {
		label := present.Humanize(name)
		fields[i] = ManualField{
			Name:        name,
			Label:       label,
			Placeholder: "Enter " + strings.ToLower(label),
			Value:       f.Values[name],
			Error:       f.Errors[name],
		}
	}
	return fields
}

// ParseManual reads the nine metrics from submitted form values. Every field
// must be present and parse as a finite number; otherwise the returned errors
// name each offending field and the request must not be sent.
func ParseManual(values url.Values) (models.PredictionRequest, *ManualForm) {
	form := NewManualForm()
	var req models.PredictionRequest

	for _, name := range models.PredictionFields {
		raw := strings.TrimSpace(values.Get(name))
		form.Values[name] = raw

		v, ok := parseNumber(raw)
		if !ok {
			form.Errors[name] = MsgInvalidNumber
			continue
		}
		req.Set(name, v)
	}

	return req, form
}

// Valid reports whether the form has no field errors
func (f *ManualForm) Valid() bool {
	return len(f.Errors) == 0
}

func parseNumber(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
