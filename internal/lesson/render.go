package lesson

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/axiometa/academy/pkg/schema"
)

// Catalog is the subset of the catalog the renderer resolves references against.
type Catalog interface {
	Module(key string) schema.Module
	ResolveNext(from *schema.Lesson, ref *schema.LessonRef) (*schema.Lesson, bool)
}

// Renderer turns lesson steps into view models.
type Renderer struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewRenderer creates a Renderer. A nil logger writes to stderr.
func NewRenderer(c Catalog, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Renderer{catalog: c, logger: logger}
}

// Render builds the view of step index. cur supplies revealed hints and may be nil.
// Only an out-of-range index is an error; bad step data renders as a placeholder.
func (r *Renderer) Render(l *schema.Lesson, index int, cur *Cursor) (v *View, err error) {
	step, err := CurrentStep(l, index)
	if err != nil {
		return nil, err
	}

	v = &View{
		LessonID:   l.ID,
		StepID:     step.ID,
		Index:      index,
		Total:      len(l.Steps),
		Kind:       step.Type,
		Title:      step.Title,
		Progress:   Progress(l, index),
		CanAdvance: CanAdvance(l, index),
		CanGoBack:  CanGoBack(index),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("step render panicked",
				"lesson_id", l.ID, "step_id", step.ID, "panic", fmt.Sprint(p))
			clearVariants(v)
			v.Title = ContentUnavailableTitle
			v.Placeholder = &PlaceholderView{Message: ContentUnavailableTitle, Reason: fmt.Sprint(p)}
			err = nil
		}
	}()

	r.fill(v, l, step, cur)
	return v, nil
}

func (r *Renderer) fill(v *View, l *schema.Lesson, step schema.Step, cur *Cursor) {
	switch b := step.Body.(type) {
	case *schema.UnknownStep:
		r.logger.Warn("unknown step type", "lesson_id", l.ID, "step_id", step.ID, "type", string(b.Tag))
		v.Fallback = &FallbackView{
			Type:    string(b.Tag),
			Message: fmt.Sprintf("%s (unsupported step type %q)", unsupportedStepMessage, b.Tag),
		}
		return
	case *schema.MalformedStep:
		r.logger.Warn("malformed step", "lesson_id", l.ID, "step_id", step.ID, "reason", b.Reason)
		v.Placeholder = &PlaceholderView{Message: ContentUnavailableTitle, Reason: b.Reason}
		return
	case nil:
		v.Placeholder = &PlaceholderView{Message: ContentUnavailableTitle, Missing: []string{"body"}}
		return
	}

	if missing := step.Body.Missing(); len(missing) > 0 {
		r.logger.Warn("step missing required fields", "lesson_id", l.ID, "step_id", step.ID, "missing", missing)
		v.Placeholder = &PlaceholderView{Message: ContentUnavailableTitle, Missing: missing}
		return
	}

	switch b := step.Body.(type) {
	case *schema.InfoStep:
		v.Info = &InfoView{Content: b.Content}

	case *schema.HardwareStep:
		mods := make([]schema.Module, 0, len(b.ModuleIDs))
		for _, id := range b.ModuleIDs {
			mods = append(mods, r.catalog.Module(id))
		}
		v.Hardware = &HardwareView{Modules: mods}

	case *schema.WiringStep:
		v.Wiring = wiringView(b, r.catalog)

	case *schema.InteractiveConceptStep:
		v.Interactive = &InteractiveView{
			Description:  b.Description,
			Component:    b.Component,
			Config:       b.Config,
			ShowControls: b.ShowControls,
			AutoPlay:     b.AutoPlay,
			Supported:    schema.KnownComponent(b.Component),
		}

	case *schema.CodeExplanationStep:
		v.Code = CodeRegions(b)

	case *schema.UploadStep:
		v.Upload = &UploadView{Instruction: b.Instruction, Code: b.Code}

	case *schema.ChallengeStep:
		var visible []string
		if cur != nil && cur.Index() == v.Index && cur.Lesson() == l {
			visible = cur.VisibleHints()
		}
		if visible == nil {
			visible = []string{}
		}
		v.Challenge = &ChallengeView{
			Instruction:  b.Instruction,
			Code:         b.Code,
			VisibleHints: visible,
			TotalHints:   len(b.Hints),
			MoreHints:    len(visible) < len(b.Hints),
		}

	case *schema.ConnectionCheckStep:
		cv := &ConnectionCheckView{
			Heading:          step.Title,
			Instruction:      b.Instruction,
			ConfirmText:      b.ConfirmText,
			TroubleshootText: b.TroubleshootText,
			TroubleshootTips: b.TroubleshootTips,
		}
		if cv.Heading == "" {
			cv.Heading = DefaultConnectionTitle
		}
		if cv.Instruction == "" {
			cv.Instruction = DefaultConnectionPrompt
		}
		v.ConnectionCheck = cv

	case *schema.VerificationStep:
		vv := &VerificationView{
			Instruction:       b.Instruction,
			Image:             b.Image,
			ConfirmText:       b.ConfirmText,
			TroubleshootText:  b.TroubleshootText,
			ShowSerialMonitor: b.ShowSerialMonitor,
			TroubleshootTips:  b.TroubleshootTips,
		}
		if vv.ConfirmText == "" {
			vv.ConfirmText = DefaultConfirmText
		}
		if vv.TroubleshootText == "" {
			vv.TroubleshootText = DefaultTroubleshootText
		}
		v.Verification = vv

	case *schema.CompletionStep:
		cv := &CompletionView{Content: b.Content, XPReward: l.XPReward}
		if b.NextLesson != nil {
			cv.NextRef = b.NextLesson.String()
			if next, ok := r.catalog.ResolveNext(l, b.NextLesson); ok {
				sum := next.Summary()
				cv.NextLesson = &sum
				cv.HasNext = true
			} else {
				r.logger.Warn("next lesson unresolved", "lesson_id", l.ID, "next", cv.NextRef)
			}
		}
		v.Completion = cv

	default:
		v.Fallback = &FallbackView{Type: string(step.Type), Message: unsupportedStepMessage}
	}
}

const unsupportedStepMessage = "This step can't be shown yet"

func wiringView(b *schema.WiringStep, c Catalog) *WiringView {
	wv := &WiringView{
		Instruction: b.Instruction,
		Images:      b.AllImages(),
		StepNumber:  b.StepNumber,
		TotalSteps:  b.TotalSteps,
		Last:        b.StepNumber >= b.TotalSteps,
	}
	if wv.Last {
		wv.Label = WiringCompleteLabel
	} else {
		wv.Label = fmt.Sprintf("Step %d of %d", b.StepNumber, b.TotalSteps)
	}
	if b.KitItemID != "" {
		m := c.Module(b.KitItemID)
		wv.KitItem = &m
	}
	return wv
}

// CodeRegions splits the listing into lines and binds each annotation to its
// line, keeping the authored annotation order.
func CodeRegions(b *schema.CodeExplanationStep) *CodeView {
	lines := strings.Split(strings.TrimRight(b.Code, "\n"), "\n")
	regions := make([]CodeRegion, 0, len(b.Explanations))
	for _, a := range b.Explanations {
		reg := CodeRegion{Line: a.Line, Highlight: a.Highlight, Explanation: a.Explanation}
		if a.Line >= 0 && a.Line < len(lines) {
			reg.Resolved = true
			reg.Text = lines[a.Line]
			reg.HighlightFound = a.Highlight == "" || strings.Contains(lines[a.Line], a.Highlight)
		}
		regions = append(regions, reg)
	}
	return &CodeView{Lines: lines, Regions: regions}
}

func clearVariants(v *View) {
	*v = View{
		LessonID:   v.LessonID,
		StepID:     v.StepID,
		Index:      v.Index,
		Total:      v.Total,
		Kind:       v.Kind,
		Progress:   v.Progress,
		CanAdvance: v.CanAdvance,
		CanGoBack:  v.CanGoBack,
	}
}
