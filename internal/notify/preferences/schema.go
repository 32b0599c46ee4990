// internal/notify/preferences/schema.go
package preferences

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// settingsSchema validates the shape of a stored preferences document before
// it is merged onto defaults. Every property is optional; what it checks is
// that present fields have usable types and enum values. Unknown fields pass
// through and are ignored by the decoder.
var settingsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"channels": channelTogglesSchema,
		"digest": map[string]interface{}{
			"type": "string",
			"enum": []string{"instant", "daily", "weekly", "never"},
		},
		"quietHours": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"enabled": map[string]interface{}{"type": "boolean"},
				"start":   timeOfDaySchema,
				"end":     timeOfDaySchema,
				"mode": map[string]interface{}{
					"type": "string",
					"enum": []string{"all", "important_only"},
				},
			},
		},
		"events": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"newItem":      map[string]interface{}{"type": "boolean"},
				"statusChange": map[string]interface{}{"type": "boolean"},
				"comment":      map[string]interface{}{"type": "boolean"},
				"assignment":   map[string]interface{}{"type": "boolean"},
				"deadline":     map[string]interface{}{"type": "boolean"},
				"system":       map[string]interface{}{"type": "boolean"},
			},
		},
		"display": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"groupSimilar": map[string]interface{}{"type": "boolean"},
				"showPreview":  map[string]interface{}{"type": "boolean"},
				"playSound":    map[string]interface{}{"type": "boolean"},
			},
		},
		"matrix": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []string{"event"},
				"properties": map[string]interface{}{
					"event": map[string]interface{}{
						"type": "string",
						"enum": []string{
							"new_item", "status_change", "comment", "assignment",
							"deadline_urgent", "deadline_overdue", "system",
						},
					},
					"channels": channelTogglesSchema,
					"priority": map[string]interface{}{
						"type": "string",
						"enum": []string{"low", "normal", "high", "critical"},
					},
				},
			},
		},
		"subscriptions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []string{"event", "scope"},
				"properties": map[string]interface{}{
					"event": map[string]interface{}{"type": "string"},
					"scope": map[string]interface{}{
						"type": "string",
						"enum": []string{"all", "role", "user"},
					},
					"value": map[string]interface{}{"type": "string"},
				},
			},
		},
	},
}

var channelTogglesSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"inApp": map[string]interface{}{"type": "boolean"},
		"email": map[string]interface{}{"type": "boolean"},
		"chat":  map[string]interface{}{"type": "boolean"},
		"sms":   map[string]interface{}{"type": "boolean"},
		"push":  map[string]interface{}{"type": "boolean"},
	},
}

var timeOfDaySchema = map[string]interface{}{
	"type":    "string",
	"pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$",
}

// validateDocument checks a raw settings document against the schema.
// Returns a description of the violations when the document is malformed.
func validateDocument(doc []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(settingsSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("settings document not valid JSON: %w", err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			descs = append(descs, e.String())
		}
		return fmt.Errorf("settings document invalid: %s", strings.Join(descs, "; "))
	}
	return nil
}
