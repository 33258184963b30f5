package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Livewire component names used by the platform's course pages.
const (
	componentLearningCenter = "v2.portal.learning-center"
	componentModuleCard     = "v2.portal.course-module-card"
	componentActiveLesson   = "v2.portal.active-lesson-component"

	livewirePath = "/livewire/message/"
)

// ComponentState is the server-issued state of one Livewire component, as
// found in a div's wire:initial-data attribute. Fingerprint and ServerMemo
// are echoed back untouched on every call.
type ComponentState struct {
	ID          string
	Name        string
	Fingerprint json.RawMessage
	ServerMemo  json.RawMessage
}

type rawComponent struct {
	Fingerprint json.RawMessage `json:"fingerprint"`
	ServerMemo  json.RawMessage `json:"serverMemo"`
}

// ParseComponentState decodes and validates a wire:initial-data payload.
func ParseComponentState(raw string) (ComponentState, error) {
	var rc rawComponent
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return ComponentState{}, fmt.Errorf("decode component state: %w", err)
	}
	if len(rc.Fingerprint) == 0 || string(rc.Fingerprint) == "null" {
		return ComponentState{}, fmt.Errorf("%w: fingerprint", ErrMissingField)
	}
	if len(rc.ServerMemo) == 0 || string(rc.ServerMemo) == "null" {
		return ComponentState{}, fmt.Errorf("%w: serverMemo", ErrMissingField)
	}

	var fp struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rc.Fingerprint, &fp); err != nil {
		return ComponentState{}, fmt.Errorf("decode fingerprint: %w", err)
	}
	if fp.ID == "" {
		return ComponentState{}, fmt.Errorf("%w: fingerprint.id", ErrMissingField)
	}
	if fp.Name == "" {
		return ComponentState{}, fmt.Errorf("%w: fingerprint.name", ErrMissingField)
	}

	return ComponentState{
		ID:          fp.ID,
		Name:        fp.Name,
		Fingerprint: rc.Fingerprint,
		ServerMemo:  rc.ServerMemo,
	}, nil
}

// ModuleID reads serverMemo.dataMeta.models.module.id from a module card.
func (c ComponentState) ModuleID() (int64, error) {
	var memo struct {
		DataMeta struct {
			Models struct {
				Module struct {
					ID json.RawMessage `json:"id"`
				} `json:"module"`
			} `json:"models"`
		} `json:"dataMeta"`
	}
	if err := json.Unmarshal(c.ServerMemo, &memo); err != nil {
		return 0, fmt.Errorf("decode serverMemo: %w", err)
	}
	id, err := parseID(memo.DataMeta.Models.Module.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: serverMemo.dataMeta.models.module.id", ErrMissingField)
	}
	return id, nil
}

// parseID accepts a JSON number or a quoted number.
func parseID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("empty id")
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

type livewireCall struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type livewireUpdate struct {
	Type    string       `json:"type"`
	Payload livewireCall `json:"payload"`
}

type livewireRequest struct {
	Fingerprint json.RawMessage  `json:"fingerprint"`
	ServerMemo  json.RawMessage  `json:"serverMemo"`
	Updates     []livewireUpdate `json:"updates"`
}

type livewireEmit struct {
	Event  string            `json:"event"`
	Params []json.RawMessage `json:"params"`
}

type livewireResponse struct {
	Effects struct {
		HTML  string         `json:"html"`
		Emits []livewireEmit `json:"emits"`
	} `json:"effects"`
}

// method builds one callMethod update addressed to c.
func (c ComponentState) method(name string, params ...any) livewireUpdate {
	if params == nil {
		params = []any{}
	}
	return livewireUpdate{
		Type:    "callMethod",
		Payload: livewireCall{ID: c.ID, Method: name, Params: params},
	}
}

// call posts updates to the component's message endpoint on behalf of the
// course page at referer.
func (s *Session) call(ctx context.Context, c ComponentState, csrf, referer string, updates ...livewireUpdate) (*livewireResponse, error) {
	payload, err := json.Marshal(livewireRequest{
		Fingerprint: c.Fingerprint,
		ServerMemo:  c.ServerMemo,
		Updates:     updates,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", c.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Resolve(livewirePath+c.Name), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-TOKEN", csrf)
	req.Header.Set("X-Livewire", "true")
	req.Header.Set("Referer", referer)

	body, _, err := s.do(req)
	if err != nil {
		return nil, err
	}
	var out livewireResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.Name, err)
	}
	return &out, nil
}

// LessonDetail is the payload of the setActiveLesson event.
type LessonDetail struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Summary     *string `json:"summary"`
	HTMLContent *string `json:"html_content"`
	ModuleID    *int64  `json:"module_id"`
	Module      *struct {
		Name *string `json:"name"`
	} `json:"module"`
}

func (r *livewireResponse) activeLesson() (*LessonDetail, error) {
	for _, e := range r.Effects.Emits {
		if e.Event != "setActiveLesson" {
			continue
		}
		if len(e.Params) == 0 {
			return nil, fmt.Errorf("%w: setActiveLesson params", ErrMissingField)
		}
		var d LessonDetail
		if err := json.Unmarshal(e.Params[0], &d); err != nil {
			return nil, fmt.Errorf("decode lesson detail: %w", err)
		}
		if d.ID == 0 {
			return nil, fmt.Errorf("%w: lesson id", ErrMissingField)
		}
		return &d, nil
	}
	return nil, errors.New("no setActiveLesson event")
}
