package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// StepType is the discriminant tag of a lesson step.
type StepType string

const (
	StepInfo               StepType = "info"
	StepHardware           StepType = "hardware"
	StepWiring             StepType = "wiring-step"
	StepInteractiveConcept StepType = "interactive-concept"
	StepCodeExplanation    StepType = "code-explanation"
	StepUpload             StepType = "upload"
	StepChallenge          StepType = "challenge"
	StepConnectionCheck    StepType = "connection-check"
	StepVerification       StepType = "verification"
	StepCompletion         StepType = "completion"
)

// KnownStepTypes lists every tag the lesson player understands, in display order.
var KnownStepTypes = []StepType{
	StepInfo, StepHardware, StepWiring, StepInteractiveConcept, StepCodeExplanation,
	StepUpload, StepChallenge, StepConnectionCheck, StepVerification, StepCompletion,
}

// Known reports whether t is one of KnownStepTypes.
func (t StepType) Known() bool {
	_, ok := newStepBody(t)
	return ok
}

// Step is one screen of a lesson. Body holds the variant for Type.
type Step struct {
	ID    string
	Type  StepType
	Title string
	Body  StepBody
}

// StepBody is implemented by exactly one struct per step kind, plus
// UnknownStep and MalformedStep for content the player cannot interpret.
type StepBody interface {
	Kind() StepType
	// Missing lists required fields the body lacks.
	Missing() []string
	sealed()
}

// NewStep builds a step whose Type agrees with its body.
func NewStep(id, title string, body StepBody) Step {
	return Step{ID: id, Type: body.Kind(), Title: title, Body: body}
}

// Missing lists required fields absent from the step, including its id.
func (s Step) Missing() []string {
	var missing []string
	if s.ID == "" {
		missing = append(missing, "id")
	}
	if s.Body == nil {
		return append(missing, "body")
	}
	return append(missing, s.Body.Missing()...)
}

// Renderable reports whether the step has a recognised, well-formed body.
func (s Step) Renderable() bool {
	switch s.Body.(type) {
	case nil, *UnknownStep, *MalformedStep:
		return false
	}
	return len(s.Body.Missing()) == 0
}

func newStepBody(t StepType) (StepBody, bool) {
	switch t {
	case StepInfo:
		return &InfoStep{}, true
	case StepHardware:
		return &HardwareStep{}, true
	case StepWiring:
		return &WiringStep{}, true
	case StepInteractiveConcept:
		return &InteractiveConceptStep{}, true
	case StepCodeExplanation:
		return &CodeExplanationStep{}, true
	case StepUpload:
		return &UploadStep{}, true
	case StepChallenge:
		return &ChallengeStep{}, true
	case StepConnectionCheck:
		return &ConnectionCheckStep{}, true
	case StepVerification:
		return &VerificationStep{}, true
	case StepCompletion:
		return &CompletionStep{}, true
	}
	return nil, false
}

type stepHead struct {
	ID    string   `yaml:"id"`
	Type  StepType `yaml:"type"`
	Title string   `yaml:"title"`
}

// UnmarshalYAML never fails: an unrecognised tag yields UnknownStep and a
// body that does not decode yields MalformedStep, so one bad step cannot
// prevent the rest of a lesson from loading.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var head stepHead
	if err := node.Decode(&head); err != nil {
		*s = Step{Body: &MalformedStep{Reason: err.Error(), Raw: rawNode(node)}}
		return nil
	}
	*s = Step{ID: head.ID, Type: head.Type, Title: head.Title}

	body, ok := newStepBody(head.Type)
	if !ok {
		s.Body = &UnknownStep{Tag: head.Type, Raw: rawNode(node)}
		return nil
	}
	if err := node.Decode(body); err != nil {
		s.Body = &MalformedStep{Tag: head.Type, Reason: err.Error(), Raw: rawNode(node)}
		return nil
	}
	s.Body = body
	return nil
}

func rawNode(node *yaml.Node) map[string]any {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return nil
	}
	return raw
}

// MarshalJSON flattens the body next to id, type and title.
func (s Step) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if s.Body != nil {
		b, err := json.Marshal(s.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal step %s body: %w", s.ID, err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("flatten step %s body: %w", s.ID, err)
		}
	}
	out["id"] = s.ID
	out["type"] = s.Type
	if s.Title != "" {
		out["title"] = s.Title
	}
	return json.Marshal(out)
}

// --- variants ---

// InfoStep is a text panel.
type InfoStep struct {
	Content string `yaml:"content" json:"content"`
}

func (*InfoStep) Kind() StepType { return StepInfo }
func (*InfoStep) sealed() {}

func (b *InfoStep) Missing() []string {
	return missingIf(b.Content == "", "content")
}

// HardwareStep lists the modules the learner needs on the bench.
type HardwareStep struct {
	ModuleIDs []string `yaml:"module_ids" json:"module_ids"`
}

func (*HardwareStep) Kind() StepType { return StepHardware }
func (*HardwareStep) sealed() {}

func (b *HardwareStep) Missing() []string {
	return missingIf(len(b.ModuleIDs) == 0, "module_ids")
}

// WiringImage is one labelled picture in a multi-image wiring step.
type WiringImage struct {
	Src   string `yaml:"src" json:"src"`
	Label string `yaml:"label" json:"label,omitempty"`
}

// WiringStep is one instruction of a numbered wiring sequence.
type WiringStep struct {
	Instruction string        `yaml:"instruction" json:"instruction"`
	Image       string        `yaml:"image" json:"image,omitempty"`
	Images      []WiringImage `yaml:"images" json:"images,omitempty"`
	KitItemID   string        `yaml:"kit_item_id" json:"kit_item_id,omitempty"`
	StepNumber  int           `yaml:"step_number" json:"step_number"`
	TotalSteps  int           `yaml:"total_steps" json:"total_steps"`
}

func (*WiringStep) Kind() StepType { return StepWiring }
func (*WiringStep) sealed() {}

func (b *WiringStep) Missing() []string {
	var m []string
	m = append(m, missingIf(b.Instruction == "", "instruction")...)
	m = append(m, missingIf(b.Image == "" && len(b.Images) == 0, "image")...)
	m = append(m, missingIf(b.StepNumber < 1, "step_number")...)
	m = append(m, missingIf(b.TotalSteps < 1, "total_steps")...)
	return m
}

// AllImages returns Image followed by Images as one list.
func (b *WiringStep) AllImages() []WiringImage {
	var out []WiringImage
	if b.Image != "" {
		out = append(out, WiringImage{Src: b.Image})
	}
	return append(out, b.Images...)
}

// InteractiveConceptStep embeds a named circuit visualisation.
type InteractiveConceptStep struct {
	Description  string         `yaml:"description" json:"description,omitempty"`
	Component    string         `yaml:"component" json:"component"`
	Config       map[string]any `yaml:"config" json:"config,omitempty"`
	ShowControls bool           `yaml:"show_controls" json:"show_controls"`
	AutoPlay     bool           `yaml:"auto_play" json:"auto_play"`
}

func (*InteractiveConceptStep) Kind() StepType { return StepInteractiveConcept }
func (*InteractiveConceptStep) sealed() {}

func (b *InteractiveConceptStep) Missing() []string {
	return missingIf(b.Component == "", "component")
}

// Annotation explains one line of a code listing. Line is zero-based.
type Annotation struct {
	Line        int    `yaml:"line" json:"line"`
	Highlight   string `yaml:"highlight" json:"highlight,omitempty"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

// CodeExplanationStep walks through a listing line by line.
type CodeExplanationStep struct {
	Code         string       `yaml:"code" json:"code"`
	Explanations []Annotation `yaml:"explanations" json:"explanations"`
}

func (*CodeExplanationStep) Kind() StepType { return StepCodeExplanation }
func (*CodeExplanationStep) sealed() {}

func (b *CodeExplanationStep) Missing() []string {
	var m []string
	m = append(m, missingIf(b.Code == "", "code")...)
	m = append(m, missingIf(len(b.Explanations) == 0, "explanations")...)
	return m
}

// UploadStep hands the learner a program to flash.
type UploadStep struct {
	Instruction string `yaml:"instruction" json:"instruction,omitempty"`
	Code        string `yaml:"code" json:"code"`
}

func (*UploadStep) Kind() StepType { return StepUpload }
func (*UploadStep) sealed() {}

func (b *UploadStep) Missing() []string {
	return missingIf(b.Code == "", "code")
}

// ChallengeStep asks the learner to modify code, with hints revealed on request.
type ChallengeStep struct {
	Instruction string   `yaml:"instruction" json:"instruction"`
	Hints       []string `yaml:"hints" json:"hints"`
	Code        string   `yaml:"code" json:"code,omitempty"`
}

func (*ChallengeStep) Kind() StepType { return StepChallenge }
func (*ChallengeStep) sealed() {}

func (b *ChallengeStep) Missing() []string {
	return missingIf(b.Instruction == "", "instruction")
}

// TroubleshootTip is one entry of a troubleshooting checklist.
type TroubleshootTip struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// ConnectionCheckStep asks the learner to confirm the board is connected.
// All fields are optional; the player supplies default prompts.
type ConnectionCheckStep struct {
	Instruction      string            `yaml:"instruction" json:"instruction,omitempty"`
	ConfirmText      string            `yaml:"confirm_text" json:"confirm_text,omitempty"`
	TroubleshootText string            `yaml:"troubleshoot_text" json:"troubleshoot_text,omitempty"`
	TroubleshootTips []TroubleshootTip `yaml:"troubleshoot_tips" json:"troubleshoot_tips,omitempty"`
}

func (*ConnectionCheckStep) Kind() StepType { return StepConnectionCheck }
func (*ConnectionCheckStep) sealed() {}
func (*ConnectionCheckStep) Missing() []string { return nil }

// VerificationStep asks the learner whether the circuit behaves as expected.
type VerificationStep struct {
	Instruction       string            `yaml:"instruction" json:"instruction"`
	Image             string            `yaml:"image" json:"image,omitempty"`
	ConfirmText       string            `yaml:"confirm_text" json:"confirm_text,omitempty"`
	TroubleshootText  string            `yaml:"troubleshoot_text" json:"troubleshoot_text,omitempty"`
	ShowSerialMonitor bool              `yaml:"show_serial_monitor" json:"show_serial_monitor"`
	TroubleshootTips  []TroubleshootTip `yaml:"troubleshoot_tips" json:"troubleshoot_tips,omitempty"`
}

func (*VerificationStep) Kind() StepType { return StepVerification }
func (*VerificationStep) sealed() {}

func (b *VerificationStep) Missing() []string {
	return missingIf(b.Instruction == "", "instruction")
}

// CompletionStep closes a lesson and may point at the next one.
type CompletionStep struct {
	Content    string     `yaml:"content" json:"content"`
	NextLesson *LessonRef `yaml:"next_lesson" json:"next_lesson,omitempty"`
}

func (*CompletionStep) Kind() StepType { return StepCompletion }
func (*CompletionStep) sealed() {}

func (b *CompletionStep) Missing() []string {
	return missingIf(b.Content == "", "content")
}

// UnknownStep carries a step whose tag the player does not understand.
type UnknownStep struct {
	Tag StepType       `json:"-"`
	Raw map[string]any `json:"raw,omitempty"`
}

func (b *UnknownStep) Kind() StepType { return b.Tag }
func (*UnknownStep) sealed() {}
func (*UnknownStep) Missing() []string { return nil }

// MalformedStep carries a step whose body could not be decoded.
type MalformedStep struct {
	Tag    StepType       `json:"-"`
	Reason string         `json:"malformed"`
	Raw    map[string]any `json:"raw,omitempty"`
}

func (b *MalformedStep) Kind() StepType { return b.Tag }
func (*MalformedStep) sealed() {}
func (*MalformedStep) Missing() []string { return nil }

func missingIf(cond bool, field string) []string {
	if cond {
		return []string{field}
	}
	return nil
}

// LessonRef points at another lesson by 1-based ordinal within a board or by id.
type LessonRef struct {
	Ordinal int
	ID      string
}

// OrdinalRef is a reference to the n-th lesson of a board.
func OrdinalRef(n int) *LessonRef { return &LessonRef{Ordinal: n} }

// IDRef is a reference to a lesson by id.
func IDRef(id string) *LessonRef { return &LessonRef{ID: id} }

func (r LessonRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return "#" + strconv.Itoa(r.Ordinal)
}

// UnmarshalYAML accepts an integer ordinal or a string id.
func (r *LessonRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("next_lesson must be an ordinal or a lesson id, got %s", node.ShortTag())
	}
	if node.ShortTag() == "!!int" {
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("next_lesson ordinal %q: %w", node.Value, err)
		}
		*r = LessonRef{Ordinal: n}
		return nil
	}
	*r = LessonRef{ID: node.Value}
	return nil
}

func (r LessonRef) MarshalJSON() ([]byte, error) {
	if r.ID != "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(r.Ordinal)
}
