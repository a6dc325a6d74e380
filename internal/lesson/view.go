package lesson

import (
	"github.com/axiometa/academy/pkg/schema"
)

// Player defaults for optional step text.
const (
	DefaultConfirmText      = "Yes, it works!"
	DefaultTroubleshootText = "It's not working"
	DefaultConnectionTitle  = "Connect Your PIXIE"
	DefaultConnectionPrompt = "Make sure your PIXIE M1 is connected via USB before continuing."
	ContentUnavailableTitle = "Content unavailable"
	WiringCompleteLabel     = "Wiring complete"
)

// View is the render model of one step. Exactly one of the variant fields is
// set, chosen by Kind.
type View struct {
	LessonID   string          `json:"lesson_id"`
	StepID     string          `json:"step_id"`
	Index      int             `json:"index"`
	Total      int             `json:"total"`
	Kind       schema.StepType `json:"kind"`
	Title      string          `json:"title"`
	Progress   float64         `json:"progress"`
	CanAdvance bool            `json:"can_advance"`
	CanGoBack  bool            `json:"can_go_back"`

	Info            *InfoView            `json:"info,omitempty"`
	Hardware        *HardwareView        `json:"hardware,omitempty"`
	Wiring          *WiringView          `json:"wiring,omitempty"`
	Interactive     *InteractiveView     `json:"interactive,omitempty"`
	Code            *CodeView            `json:"code,omitempty"`
	Upload          *UploadView          `json:"upload,omitempty"`
	Challenge       *ChallengeView       `json:"challenge,omitempty"`
	ConnectionCheck *ConnectionCheckView `json:"connection_check,omitempty"`
	Verification    *VerificationView    `json:"verification,omitempty"`
	Completion      *CompletionView      `json:"completion,omitempty"`
	Fallback        *FallbackView        `json:"fallback,omitempty"`
	Placeholder     *PlaceholderView     `json:"placeholder,omitempty"`
}

type InfoView struct {
	Content string `json:"content"`
}

type HardwareView struct {
	Modules []schema.Module `json:"modules"`
}

type WiringView struct {
	Instruction string               `json:"instruction"`
	Images      []schema.WiringImage `json:"images"`
	KitItem     *schema.Module       `json:"kit_item,omitempty"`
	StepNumber  int                  `json:"step_number"`
	TotalSteps  int                  `json:"total_steps"`
	Label       string               `json:"label"`
	Last        bool                 `json:"last"`
}

type InteractiveView struct {
	Description  string         `json:"description,omitempty"`
	Component    string         `json:"component"`
	Config       map[string]any `json:"config,omitempty"`
	ShowControls bool           `json:"show_controls"`
	AutoPlay     bool           `json:"auto_play"`
	// Supported is false when the player has no such visualisation.
	Supported bool `json:"supported"`
}

// CodeRegion binds one annotation to a line of the listing.
type CodeRegion struct {
	Line        int    `json:"line"`
	Text        string `json:"text"`
	Highlight   string `json:"highlight,omitempty"`
	Explanation string `json:"explanation"`
	// Resolved is false when Line is outside the listing.
	Resolved bool `json:"resolved"`
	// HighlightFound is false when Highlight does not occur on the line.
	HighlightFound bool `json:"highlight_found"`
}

type CodeView struct {
	Lines   []string     `json:"lines"`
	Regions []CodeRegion `json:"regions"`
}

type UploadView struct {
	Instruction string `json:"instruction,omitempty"`
	Code        string `json:"code"`
}

type ChallengeView struct {
	Instruction  string   `json:"instruction"`
	Code         string   `json:"code,omitempty"`
	VisibleHints []string `json:"visible_hints"`
	TotalHints   int      `json:"total_hints"`
	MoreHints    bool     `json:"more_hints"`
}

type ConnectionCheckView struct {
	Heading          string                   `json:"heading"`
	Instruction      string                   `json:"instruction"`
	ConfirmText      string                   `json:"confirm_text,omitempty"`
	TroubleshootText string                   `json:"troubleshoot_text,omitempty"`
	TroubleshootTips []schema.TroubleshootTip `json:"troubleshoot_tips,omitempty"`
}

type VerificationView struct {
	Instruction       string                   `json:"instruction"`
	Image             string                   `json:"image,omitempty"`
	ConfirmText       string                   `json:"confirm_text"`
	TroubleshootText  string                   `json:"troubleshoot_text"`
	ShowSerialMonitor bool                     `json:"show_serial_monitor"`
	TroubleshootTips  []schema.TroubleshootTip `json:"troubleshoot_tips,omitempty"`
}

type CompletionView struct {
	Content    string                `json:"content"`
	XPReward   int                   `json:"xp_reward"`
	NextRef    string                `json:"next_ref,omitempty"`
	NextLesson *schema.LessonSummary `json:"next_lesson,omitempty"`
	HasNext    bool                  `json:"has_next"`
}

// FallbackView is shown for a step type the player does not know.
type FallbackView struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PlaceholderView is shown for a known step type whose data is unusable.
type PlaceholderView struct {
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}
