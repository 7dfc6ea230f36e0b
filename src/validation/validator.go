package validation

import (
	"sync"

	"github.com/openincident/beacon/src/incident"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

// ActivityStreamsContext is carried by every federated document alongside
// the namespace context; it never selects a checker.
const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// Validator holds compiled schema checkers keyed by context URL and
// validates incident documents against the checker their declared context
// selects. Registration is an explicit step; validating against an
// unregistered context is a first-class error, not a fallback.
type Validator struct {
	l        sync.RWMutex
	checkers map[string]*gojsonschema.Schema
	logger   *logrus.Entry
}

// NewValidator ...
func NewValidator(logger *logrus.Entry) *Validator {
	return &Validator{
		checkers: map[string]*gojsonschema.Schema{},
		logger:   logger,
	}
}

// RegisterSchema compiles a JSON Schema and associates it with a context
// URL. Re-registering the same URL replaces the prior checker.
func (v *Validator) RegisterSchema(contextURL string, schema map[string]interface{}) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return err
	}

	v.l.Lock()
	defer v.l.Unlock()

	v.checkers[contextURL] = compiled

	v.logger.WithField("context", contextURL).Debug("Registered schema")

	return nil
}

// Contexts returns the registered context URLs.
func (v *Validator) Contexts() []string {
	v.l.RLock()
	defer v.l.RUnlock()

	res := make([]string, 0, len(v.checkers))
	for url := range v.checkers {
		res = append(res, url)
	}
	return res
}

// ValidateIncident checks a payload against the schema selected by its
// declared @context. It is synchronous and has no side effects. It fails
// with an UnknownContextError when the context is not registered, and with
// a ValidationError aggregating every violated constraint when the payload
// does not conform.
func (v *Validator) ValidateIncident(payload map[string]interface{}) error {
	contextURL, ok := declaredContext(payload)
	if !ok {
		return &ValidationError{Violations: []string{"(root): @context is required"}}
	}

	v.l.RLock()
	checker, registered := v.checkers[contextURL]
	v.l.RUnlock()

	if !registered {
		return &UnknownContextError{Context: contextURL}
	}

	result, err := checker.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return &ValidationError{Violations: []string{err.Error()}}
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			violations = append(violations, e.String())
		}
		return &ValidationError{Violations: violations}
	}

	return nil
}

// declaredContext extracts the context URL that selects the checker: the
// @context string itself, or the first usable element of a context array,
// skipping the ActivityStreams URL.
func declaredContext(payload map[string]interface{}) (string, bool) {
	contexts := incident.Document(payload).Contexts()

	for _, c := range contexts {
		if c != ActivityStreamsContext {
			return c, true
		}
	}

	if len(contexts) > 0 {
		return contexts[0], true
	}

	return "", false
}
