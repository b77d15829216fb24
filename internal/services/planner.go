package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

// DefaultProfileImageURL is used in the meta block of records that have none
const DefaultProfileImageURL = "/static/favicon.png"

// ErrInvalidID marks a record without a usable id. Such records are never sent.
var ErrInvalidID = errors.New("model has no usable id")

// UpdatePlan is the result of planning one record
type UpdatePlan struct {
	Payload         *models.Model
	AlreadyAtTarget bool // no call is made for these
}

// PlanUpdate decides what to send for m. The payload is a shallow copy of m
// with base_model_id set to target and name, meta and params filled in when
// missing. Keys the updater does not manage are carried over untouched.
func PlanUpdate(m *models.Model, target string) (*UpdatePlan, error) {
	if m == nil || m.ID == "" || m.ID == models.UnknownID {
		return nil, ErrInvalidID
	}

	payload := m.Clone()
	payload.BaseModelID = target

	name := m.Name
	if name == "" {
		name = models.UnknownID
	}
	if !m.Has(models.KeyName) {
		payload.Name = name
	}

	if !m.Has(models.KeyMeta) {
		meta, err := json.Marshal(models.ModelMeta{
			ProfileImageURL: DefaultProfileImageURL,
			Description:     fmt.Sprintf("%s using %s", name, target),
			Capabilities:    map[string]interface{}{},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build meta: %w", err)
		}
		payload.Meta = meta
	}

	if !m.Has(models.KeyParams) {
		payload.Params = json.RawMessage(`{}`)
	}

	return &UpdatePlan{
		Payload:         payload,
		AlreadyAtTarget: m.BaseModelID == target,
	}, nil
}
