package schema

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

// CoreDefinition returns the fixed term set of the core namespace. Every
// node in a federation generates the same core artifacts from it.
func CoreDefinition(coreDomain string) *RawDefinition {
	vocab := fmt.Sprintf("%s/%s/%s/%s#", coreDomain, CoreNamespace, Vocab, Version)

	return &RawDefinition{
		Namespace: CoreNamespace,
		Terms: []Term{
			{
				Name:     "title",
				IRI:      vocab + "title",
				Schema:   map[string]interface{}{"type": "string"},
				Required: true,
			},
			{
				Name:   "description",
				IRI:    vocab + "description",
				Schema: map[string]interface{}{"type": "string"},
			},
			{
				Name: "severity",
				IRI:  vocab + "severity",
				Schema: map[string]interface{}{
					"type": "string",
					"enum": []interface{}{"low", "medium", "high", "critical"},
				},
			},
			{
				Name:   "category",
				IRI:    vocab + "category",
				Schema: map[string]interface{}{"type": "string"},
			},
			{
				Name: "occurredAt",
				IRI:  vocab + "occurredAt",
				Schema: map[string]interface{}{
					"type":   "string",
					"format": "date-time",
				},
			},
			{
				Name:   "location",
				IRI:    vocab + "location",
				Schema: map[string]interface{}{"type": "string"},
			},
			{
				Name:   "reportedBy",
				IRI:    vocab + "reportedBy",
				Schema: map[string]interface{}{"type": "string"},
			},
		},
	}
}

// DefaultLocalDefinition returns a starter definition for the configured
// local namespace. It narrows the core title and adds a few extension
// fields, including embedded report objects.
func DefaultLocalDefinition(localDomain, namespace string) *RawDefinition {
	vocab := fmt.Sprintf("%s/%s/%s/%s#", localDomain, namespace, Vocab, Version)

	return &RawDefinition{
		Namespace: namespace,
		Terms: []Term{
			{
				Name: "title",
				IRI:  vocab + "title",
				Schema: map[string]interface{}{
					"type":      "string",
					"minLength": 5,
				},
			},
			{
				Name:   "impact",
				IRI:    vocab + "impact",
				Schema: map[string]interface{}{"type": "string"},
			},
			{
				Name: "affectedSystems",
				IRI:  vocab + "affectedSystems",
				Schema: map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
			{
				Name: "reports",
				IRI:  vocab + "reports",
				Schema: map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"content":     map[string]interface{}{"type": "string"},
							"author":      map[string]interface{}{"type": "string"},
							"publishedAt": map[string]interface{}{"type": "string", "format": "date-time"},
						},
						"required": []interface{}{"content"},
					},
				},
			},
		},
		Types: map[string][]Term{
			"report": {
				{
					Name:     "content",
					IRI:      vocab + "report-content",
					Schema:   map[string]interface{}{"type": "string"},
					Required: true,
				},
				{
					Name:   "author",
					IRI:    vocab + "report-author",
					Schema: map[string]interface{}{"type": "string"},
				},
				{
					Name:   "publishedAt",
					IRI:    vocab + "report-publishedAt",
					Schema: map[string]interface{}{"type": "string", "format": "date-time"},
				},
			},
		},
	}
}

// LoadDefinition reads a raw definition from a JSON file, as found in the
// node's data directory.
func LoadDefinition(path string) (*RawDefinition, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	def := new(RawDefinition)
	if err := json.Unmarshal(buf, def); err != nil {
		return nil, err
	}

	if def.Namespace == "" {
		return nil, fmt.Errorf("schema definition %s has no namespace", path)
	}

	return def, nil
}
