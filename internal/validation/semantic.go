package validation

import (
	"fmt"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/internal/lesson"
	"github.com/axiometa/academy/pkg/schema"
)

// validateSemantic checks the bundle as a whole: unique ids, module and board
// references, step bodies, wiring sequences, annotations, next-lesson links
// and unlock rules.
func validateSemantic(b *content.Bundle, cat *catalog.Catalog, rules RuleCompiler) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	validateKits(b, cat, result)
	validateModules(b, result)
	validateBoards(b, result)

	lessonIDs := make(map[string]int, len(b.Lessons))
	for i, l := range b.Lessons {
		path := lessonPath(b, i, l)
		if first, dup := lessonIDs[l.ID]; dup && l.ID != "" {
			result.AddError(path+".id", schema.IssueDuplicateID,
				fmt.Sprintf("lesson id %q already used by %s", l.ID, b.LessonFile(first)))
		} else {
			lessonIDs[l.ID] = i
		}
		validateLesson(l, path, cat, rules, result)
	}
	return result
}

func validateKits(b *content.Bundle, cat *catalog.Catalog, result *schema.ValidationResult) {
	ids := make(map[string]bool, len(b.Kits))
	byBoard := make(map[string]string)
	for i, k := range b.Kits {
		path := fmt.Sprintf("kits[%d]", i)
		if ids[k.ID] {
			result.AddError(path+".id", schema.IssueDuplicateID, fmt.Sprintf("kit id %q is not unique", k.ID))
		}
		ids[k.ID] = true

		for _, board := range uniq(k.Board, k.LessonBoard) {
			if board != "" && !cat.KnownBoard(board) {
				result.AddWarning(path+".board", schema.IssueUnknownBoard,
					fmt.Sprintf("board %q is not in the board registry", board))
			}
			if first, taken := byBoard[board]; taken && board != "" {
				result.AddWarning(path+".board", schema.IssueAmbiguousBoard,
					fmt.Sprintf("kit %q shares board %q with kit %q; board lookups return %q", k.ID, board, first, first))
				continue
			}
			byBoard[board] = k.ID
		}

		for j, id := range k.Modules {
			if _, ok := cat.LookupModule(id); !ok {
				result.AddError(fmt.Sprintf("%s.modules[%d]", path, j), schema.IssueUnknownModule,
					fmt.Sprintf("module %q is not in the registry", id))
			}
		}
	}
}

func validateModules(b *content.Bundle, result *schema.ValidationResult) {
	keys := make(map[string]bool, len(b.Modules)*2)
	for i, m := range b.Modules {
		path := fmt.Sprintf("modules[%d]", i)
		if keys[m.ID] {
			result.AddError(path+".id", schema.IssueDuplicateID, fmt.Sprintf("module id %q is not unique", m.ID))
		}
		keys[m.ID] = true
		if m.SKU != "" && m.SKU != m.ID {
			if keys[m.SKU] {
				result.AddError(path+".sku", schema.IssueDuplicateID, fmt.Sprintf("module sku %q is not unique", m.SKU))
			}
			keys[m.SKU] = true
		}
	}
}

func validateBoards(b *content.Bundle, result *schema.ValidationResult) {
	ids := make(map[string]bool, len(b.Boards))
	for i, bd := range b.Boards {
		if ids[bd.ID] {
			result.AddError(fmt.Sprintf("boards[%d].id", i), schema.IssueDuplicateID,
				fmt.Sprintf("board id %q is not unique", bd.ID))
		}
		ids[bd.ID] = true
	}
}

func validateLesson(l *schema.Lesson, path string, cat *catalog.Catalog, rules RuleCompiler, result *schema.ValidationResult) {
	if l.Board != "" && !cat.KnownBoard(l.Board) {
		result.AddWarning(path+".board", schema.IssueUnknownBoard,
			fmt.Sprintf("board %q is not in the board registry", l.Board))
	}
	for j, id := range l.RequiredModules {
		if _, ok := cat.LookupModule(id); !ok {
			result.AddError(fmt.Sprintf("%s.required_modules[%d]", path, j), schema.IssueUnknownModule,
				fmt.Sprintf("module %q is not in the registry", id))
		}
	}
	if l.Unlock != "" && rules != nil {
		if err := rules.Compile(l.Unlock); err != nil {
			result.AddError(path+".unlock", schema.IssueUnlockRule, err.Error())
		}
	}

	if len(l.Steps) == 0 {
		result.AddError(path+".steps", schema.IssueEmptyLesson, "lesson has no steps")
		return
	}

	stepIDs := make(map[string]int, len(l.Steps))
	for i, s := range l.Steps {
		sp := fmt.Sprintf("%s.steps[%d]", path, i)
		if first, dup := stepIDs[s.ID]; dup && s.ID != "" {
			result.AddError(sp+".id", schema.IssueDuplicateStepID,
				fmt.Sprintf("step id %q already used by step %d", s.ID, first))
		} else {
			stepIDs[s.ID] = i
		}
		validateStep(l, i, sp, cat, result)
	}

	validateWiring(l, path, result)
}

func validateStep(l *schema.Lesson, i int, path string, cat *catalog.Catalog, result *schema.ValidationResult) {
	s := l.Steps[i]

	switch body := s.Body.(type) {
	case nil:
		result.AddError(path, schema.IssueMalformedStep, "step has no body")
		return
	case *schema.UnknownStep:
		result.AddWarning(path+".type", schema.IssueUnknownStepType,
			fmt.Sprintf("step type %q is not supported by the lesson player", body.Tag))
		return
	case *schema.MalformedStep:
		result.AddError(path, schema.IssueMalformedStep, body.Reason)
		return
	case *schema.HardwareStep:
		for j, id := range body.ModuleIDs {
			if _, ok := cat.LookupModule(id); !ok {
				result.AddError(fmt.Sprintf("%s.module_ids[%d]", path, j), schema.IssueUnknownModule,
					fmt.Sprintf("module %q is not in the registry", id))
			}
		}
	case *schema.WiringStep:
		if body.KitItemID != "" {
			if _, ok := cat.LookupModule(body.KitItemID); !ok {
				result.AddError(path+".kit_item_id", schema.IssueUnknownModule,
					fmt.Sprintf("module %q is not in the registry", body.KitItemID))
			}
		}
	case *schema.InteractiveConceptStep:
		if body.Component != "" && !schema.KnownComponent(body.Component) {
			result.AddWarning(path+".component", schema.IssueUnknownComponent,
				fmt.Sprintf("visualisation %q is not available; a placeholder is shown", body.Component))
		}
	case *schema.CodeExplanationStep:
		validateAnnotations(body, path, result)
	case *schema.CompletionStep:
		if i != len(l.Steps)-1 {
			result.AddWarning(path, schema.IssueCompletionNotLast,
				fmt.Sprintf("completion step is at position %d of %d", i+1, len(l.Steps)))
		}
		if body.NextLesson != nil {
			if _, ok := cat.ResolveNext(l, body.NextLesson); !ok {
				result.AddWarning(path+".next_lesson", schema.IssueUnresolvedNext,
					fmt.Sprintf("next lesson %s does not resolve; forward navigation is disabled", body.NextLesson))
			}
		}
	}

	for _, field := range s.Missing() {
		result.AddError(path+"."+field, schema.IssueMissingField,
			fmt.Sprintf("%s step is missing %q", s.Type, field))
	}
}

func validateAnnotations(body *schema.CodeExplanationStep, path string, result *schema.ValidationResult) {
	code := lesson.CodeRegions(body)
	for j, reg := range code.Regions {
		ap := fmt.Sprintf("%s.explanations[%d]", path, j)
		if !reg.Resolved {
			result.AddWarning(ap+".line", schema.IssueAnnotationLine,
				fmt.Sprintf("line %d is outside the %d-line listing", reg.Line, len(code.Lines)))
			continue
		}
		if !reg.HighlightFound {
			result.AddWarning(ap+".highlight", schema.IssueAnnotationLine,
				fmt.Sprintf("highlight %q does not occur on line %d", reg.Highlight, reg.Line))
		}
	}
}

func uniq(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}
