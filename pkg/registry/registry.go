package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRegistry reads an activity catalogue from a JSON file.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

var (
	productTypes = []interface{}{
		"consumption", "investment", "invoice_advance", "order_advance",
		"savings_circle", "pension_advance", "spot_emergency",
	}
	eventTypes = []interface{}{
		"regular_payment", "late_payment", "missed_payment", "early_payment",
		"new_loan", "loan_closure", "income_update", "employment_change",
	}
	employmentTypes = []interface{}{
		"permanent", "civil_servant", "fixed_term", "self_employed", "other",
	}
	subjectID = map[string]interface{}{"type": "string", "minLength": 1}
)

func object(required []interface{}, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// when applies then to events of the given type.
func when(eventType string, then map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"if":   object([]interface{}{"type"}, map[string]interface{}{"type": map[string]interface{}{"enum": []interface{}{eventType}}}),
		"then": then,
	}
}

// transactionEvent rejects events that could not change the profile: an
// income update needs a positive amount or newIncome, an employment change a
// known newEmployment.
func transactionEvent() map[string]interface{} {
	positive := map[string]interface{}{"type": "number", "exclusiveMinimum": 0}
	employment := map[string]interface{}{"type": "string", "enum": employmentTypes}

	ev := object([]interface{}{"type"}, map[string]interface{}{
		"type":          map[string]interface{}{"type": "string", "enum": eventTypes},
		"amount":        map[string]interface{}{"type": "number", "minimum": 0},
		"scheduledDate": map[string]interface{}{"type": "string"},
		"actualDate":    map[string]interface{}{"type": "string"},
		"metadata": object(nil, map[string]interface{}{
			"daysLate":           map[string]interface{}{"type": "integer", "minimum": 0},
			"daysEarly":          map[string]interface{}{"type": "integer", "minimum": 0},
			"newIncome":          map[string]interface{}{"type": "number", "minimum": 0},
			"previousEmployment": employment,
			"newEmployment":      employment,
		}),
	})
	ev["allOf"] = []interface{}{
		when("income_update", map[string]interface{}{
			"anyOf": []interface{}{
				object([]interface{}{"amount"}, map[string]interface{}{"amount": positive}),
				object([]interface{}{"metadata"}, map[string]interface{}{
					"metadata": object([]interface{}{"newIncome"}, map[string]interface{}{"newIncome": positive}),
				}),
			},
		}),
		when("employment_change", object([]interface{}{"metadata"}, map[string]interface{}{
			"metadata": map[string]interface{}{"required": []interface{}{"newEmployment"}},
		})),
	}
	return ev
}

// Default is the built-in catalogue of scoring activities.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-01",
		Activities: []Activity{
			{
				ID:          "score-subject",
				DisplayName: "Score Subject",
				Description: "Computes or returns the current credit score of a subject",
				Category:    "scoring",
				TaskType:    "score-subject",
				InputSchema: object([]interface{}{"subjectId"}, map[string]interface{}{
					"subjectId":      subjectID,
					"profile":        map[string]interface{}{"type": "object"},
					"forceRecompute": map[string]interface{}{"type": "boolean"},
				}),
				ErrorCodes: []string{"INVALID_INPUT", "SUBJECT_NOT_FOUND", "CONCURRENT_UPDATE_CONFLICT", "DATABASE_QUERY_FAILED"},
				Timeout:    "15s",
				Retries:    3,
			},
			{
				ID:          "apply-transaction",
				DisplayName: "Apply Transaction",
				Description: "Records a financial event and updates the subject's score incrementally",
				Category:    "scoring",
				TaskType:    "apply-transaction",
				InputSchema: object([]interface{}{"subjectId", "event"}, map[string]interface{}{
					"subjectId":      subjectID,
					"event":          transactionEvent(),
					"forceRecompute": map[string]interface{}{"type": "boolean"},
				}),
				ErrorCodes: []string{"INVALID_INPUT", "UNKNOWN_EVENT_TYPE", "SUBJECT_NOT_FOUND", "CONCURRENT_UPDATE_CONFLICT"},
				Timeout:    "15s",
				Retries:    3,
			},
			{
				ID:          "check-eligibility",
				DisplayName: "Check Eligibility",
				Description: "Evaluates product eligibility gates and the eligible amount",
				Category:    "scoring",
				TaskType:    "check-eligibility",
				InputSchema: object([]interface{}{"subjectId"}, map[string]interface{}{
					"subjectId":   subjectID,
					"productType": map[string]interface{}{"type": "string", "enum": productTypes},
				}),
				ErrorCodes: []string{"INVALID_INPUT", "UNKNOWN_PRODUCT_TYPE", "SUBJECT_NOT_FOUND"},
				Timeout:    "10s",
				Retries:    3,
			},
			{
				ID:          "train-classifier",
				DisplayName: "Train Classifier",
				Description: "Trains the good/bad debtor classifier from labelled samples",
				Category:    "model",
				TaskType:    "train-classifier",
				InputSchema: object(nil, map[string]interface{}{
					"samples": map[string]interface{}{
						"type": "array",
						"items": object([]interface{}{"features", "good"}, map[string]interface{}{
							"features": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
							"good":     map[string]interface{}{"type": "boolean"},
						}),
					},
				}),
				ErrorCodes: []string{"INSUFFICIENT_DATA", "TRAINING_IN_PROGRESS", "DATABASE_QUERY_FAILED"},
				Timeout:    "5m",
				Retries:    1,
			},
			{
				ID:          "score-history",
				DisplayName: "Score History",
				Description: "Lists the append-only score history of a subject",
				Category:    "scoring",
				TaskType:    "score-history",
				InputSchema: object([]interface{}{"subjectId"}, map[string]interface{}{
					"subjectId": subjectID,
					"limit":     map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 500},
				}),
				ErrorCodes: []string{"INVALID_INPUT", "DATABASE_QUERY_FAILED"},
				Timeout:    "5s",
				Retries:    3,
			},
			{
				ID:          "recalculate-scores",
				DisplayName: "Recalculate Scores",
				Description: "Force-recomputes the scores of stored subjects",
				Category:    "maintenance",
				TaskType:    "recalculate-scores",
				InputSchema: object(nil, map[string]interface{}{
					"limit": map[string]interface{}{"type": "integer", "minimum": 0},
				}),
				ErrorCodes: []string{"DATABASE_QUERY_FAILED"},
				Timeout:    "10m",
				Retries:    1,
			},
			{
				ID:          "scoring-analytics",
				DisplayName: "Scoring Analytics",
				Description: "Aggregates tier distribution and score statistics over a time range",
				Category:    "analytics",
				TaskType:    "scoring-analytics",
				InputSchema: object(nil, map[string]interface{}{
					"productType": map[string]interface{}{"type": "string", "enum": productTypes},
					"from":        map[string]interface{}{"type": "string"},
					"to":          map[string]interface{}{"type": "string"},
				}),
				ErrorCodes: []string{"INVALID_INPUT", "SEARCH_QUERY_FAILED"},
				Timeout:    "10s",
				Retries:    3,
			},
		},
	}
}
