// Package presentation translates session snapshots into display-ready view
// state. It holds no state of its own, so every front-end (terminal, HTTP)
// renders the same text for the same snapshot.
package presentation

import (
	"fmt"
	"strings"

	"github.com/Veraticus/ecolens/internal/classifier"
	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/session"
)

// Overlay selects the result banner shown over the camera view.
type Overlay string

// Overlays.
const (
	OverlayNone    Overlay = "none"
	OverlaySuccess Overlay = "success"
	OverlayFail    Overlay = "fail"
	OverlayUnknown Overlay = "unknown"
)

// Button labels.
const (
	ButtonScan     = "Scan Object"
	ButtonScanning = "Scanning..."
	ButtonLoading  = "Loading AI..."
)

// UnidentifiedMessage is shown when the classifier returned nothing usable.
const UnidentifiedMessage = "I couldn't identify that. Try getting closer!"

// DebugPredictions is the number of raw predictions surfaced for debugging.
const DebugPredictions = 3

// ViewState is everything a front-end needs to draw one frame of a session.
type ViewState struct {
	Overlay       Overlay  `json:"overlay"`
	Headline      string   `json:"headline,omitempty"`
	Message       string   `json:"message,omitempty"`
	CountdownText string   `json:"countdown_text,omitempty"`
	ButtonLabel   string   `json:"button_label"`
	MissionText   string   `json:"mission_text,omitempty"`
	LastDetected  string   `json:"last_detected,omitempty"`
	Fatal         string   `json:"fatal,omitempty"`
	Examples      []string `json:"examples,omitempty"`
	Debug         []string `json:"debug,omitempty"`
	ButtonEnabled bool     `json:"button_enabled"`
}

// Build derives the view for snap.
func Build(snap session.Snapshot) ViewState {
	v := ViewState{
		Overlay:     OverlayNone,
		ButtonLabel: buttonLabel(snap),
	}
	v.ButtonEnabled = snap.State == session.StateIdle && snap.ModelState == classifier.StateReady

	if snap.State == session.StateDisabled {
		v.Fatal = common.UserMessage(snap.Fatal, classifier.ModelLoadMessage)
		return v
	}

	if snap.Mission != nil {
		v.MissionText = snap.Mission.Prompt
		v.Examples = append([]string(nil), snap.Mission.Examples...)
	}

	if snap.CooldownRemaining > 0 {
		v.CountdownText = CountdownText(snap.CooldownRemaining)
	}

	if a := snap.LastAttempt; a != nil {
		v.Debug = a.Predictions.Debug(DebugPredictions)
		if a.Label != "" {
			v.LastDetected = fmt.Sprintf("Last detected: %s (%.0f%% confident)", a.Label, a.Confidence*100)
		}
		if snap.State != session.StateScanning {
			v.Overlay, v.Headline, v.Message = result(snap.Mode, a)
		}
	}

	return v
}

// CountdownText formats a remaining cooldown.
func CountdownText(seconds int) string {
	return fmt.Sprintf("Wait %ds", seconds)
}

func buttonLabel(snap session.Snapshot) string {
	switch {
	case snap.State == session.StateScanning:
		return ButtonScanning
	case snap.ModelState == classifier.StateUnloaded || snap.ModelState == classifier.StateLoading:
		return ButtonLoading
	default:
		return ButtonScan
	}
}

func result(mode session.Mode, a *session.Attempt) (Overlay, string, string) {
	switch a.Outcome {
	case model.OutcomeSuccess:
		if mode == session.ModeSorting {
			return OverlaySuccess, titleCase(a.Category.String()), a.Guidance
		}
		msg := ""
		if a.RewardXP > 0 {
			msg = fmt.Sprintf("+%d XP", a.RewardXP)
		}
		return OverlaySuccess, "Success!", msg
	case model.OutcomeFail:
		msg := ""
		if a.Mission != nil {
			msg = "Try " + strings.ToLower(a.Mission.TargetCategory.String())
		}
		return OverlayFail, "Not Quite!", msg
	default:
		msg := a.Guidance
		if a.Label == "" || msg == "" {
			msg = UnidentifiedMessage
		}
		return OverlayUnknown, "Unknown", msg
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
