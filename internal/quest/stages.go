package quest

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"regexp"
	"sort"
	"time"
)

// TerminalStage ends the quest: it has no children and marks the owning
// instance complete on execute. The engine stops the pass as soon as the
// instance goes complete, so two terminal stages can never both fire in one
// pass.
type TerminalStage struct {
	BaseStage
}

func (s *TerminalStage) Children() []string {
	return nil
}

func (s *TerminalStage) Execute(ctx context.Context, run *Run) error {
	run.Instance.Complete = true
	return nil
}

// CompareOp selects the comparison a ConditionStage applies.
type CompareOp string

const (
	OpEqual          CompareOp = "=="
	OpNotEqual       CompareOp = "!="
	OpGreater        CompareOp = ">"
	OpGreaterOrEqual CompareOp = ">="
	OpLess           CompareOp = "<"
	OpLessOrEqual    CompareOp = "<="
)

// ConditionStage gates its children on a comparison between a quest data
// field and either another field or a fixed literal. The evaluation lives in
// the condition, not the execute; when the comparison is false, the stage
// stays ready and its children stay blocked.
type ConditionStage struct {
	BaseStage

	// Field names the left-hand quest data field.
	Field string

	// OtherField names the right-hand field. When blank, Value is used.
	OtherField string

	// Value is the right-hand literal when OtherField is blank.
	Value any

	// Op defaults to equality.
	Op CompareOp
}

func (s *ConditionStage) Condition(ctx context.Context, run *Run) (bool, error) {
	left, err := Field(run.Data(), s.Field)
	if err != nil {
		return false, err
	}

	right := s.Value
	if s.OtherField != "" {
		right, err = Field(run.Data(), s.OtherField)
		if err != nil {
			return false, err
		}
	}

	op := s.Op
	if op == "" {
		op = OpEqual
	}
	return compareValues(left, right, op)
}

func compareValues(left, right any, op CompareOp) (bool, error) {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		switch op {
		case OpEqual:
			return lf == rf, nil
		case OpNotEqual:
			return lf != rf, nil
		case OpGreater:
			return lf > rf, nil
		case OpGreaterOrEqual:
			return lf >= rf, nil
		case OpLess:
			return lf < rf, nil
		case OpLessOrEqual:
			return lf <= rf, nil
		}
		return false, fmt.Errorf("unknown comparison operator %q", op)
	}

	switch op {
	case OpEqual:
		return reflect.DeepEqual(left, right), nil
	case OpNotEqual:
		return !reflect.DeepEqual(left, right), nil
	}
	return false, fmt.Errorf("operator %q requires numeric operands, got %T and %T", op, left, right)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// DelayStage holds its children back for a fixed duration. The first prepare
// stamps the arrival time into scratch data; the condition passes once the
// duration has elapsed and never re-arms.
type DelayStage struct {
	BaseStage
	Duration time.Duration
}

type delayData struct {
	ArmedAt time.Time `json:"armed_at"`
}

func (s *DelayStage) Prepare(ctx context.Context, run *Run) error {
	var d delayData
	armed, err := run.StageData(&d)
	if err != nil {
		return err
	}
	if armed {
		return nil
	}
	return run.SetStageData(delayData{ArmedAt: run.now()})
}

func (s *DelayStage) Condition(ctx context.Context, run *Run) (bool, error) {
	var d delayData
	armed, err := run.StageData(&d)
	if err != nil {
		return false, err
	}
	if !armed {
		return false, nil
	}
	return !run.now().Before(d.ArmedAt.Add(s.Duration)), nil
}

// CreateIssueStage opens an issue on the game's fork and stores the issue
// number into a quest data field for downstream stages.
type CreateIssueStage struct {
	BaseStage
	Title string
	Body  string

	// IssueField names the quest data field receiving the issue number.
	IssueField string
}

func (s *CreateIssueStage) Execute(ctx context.Context, run *Run) error {
	number, err := run.Character.CreateIssue(ctx, run.Game.ForkURL, s.Title, s.Body)
	if err != nil {
		return err
	}
	return SetField(run.Data(), s.IssueField, number)
}

// CommentStage posts one or more comments, in order, to a previously
// recorded issue. With several comments it reads as a scripted conversation.
type CommentStage struct {
	BaseStage

	// IssueField names the quest data field holding the issue number.
	IssueField string

	Comments []string

	// TimeField, when set, receives the time of the last posted comment so
	// downstream reply checks only look at newer comments.
	TimeField string
}

func (s *CommentStage) Execute(ctx context.Context, run *Run) error {
	issue, err := issueNumber(run, s.IssueField)
	if err != nil {
		return err
	}

	for _, body := range s.Comments {
		if _, err := run.Character.CreateComment(ctx, run.Game.ForkURL, issue, body); err != nil {
			return err
		}
	}

	if s.TimeField != "" {
		return SetField(run.Data(), s.TimeField, run.now())
	}
	return nil
}

// ReplyCheckStage watches a recorded issue for a reply from the player that
// matches a pattern. On the first match it stores the capture groups and the
// comment ID into quest data and passes. Non-matching replies may draw a
// randomly chosen response.
//
// Fast-cadence ticks only run the real check once (before the stage has any
// scratch data); afterwards the fast condition reports false and the full
// cadence does the polling. This is what keeps frequent ticks from hammering
// the external API.
type ReplyCheckStage struct {
	BaseStage

	// IssueField names the quest data field holding the issue number.
	IssueField string

	// Pattern is the regular expression a reply must match.
	Pattern string

	// CaptureFields receives the pattern's capture groups, one quest data
	// field per group, in order.
	CaptureFields []string

	// MatchIDField, when set, receives the matching comment's ID.
	MatchIDField string

	// SinceField, when set, names a quest data time field (for example the
	// time of the last scripted comment); only replies after the later of
	// it and the stage's own last check are considered.
	SinceField string

	// WrongReplies are candidate responses to a non-matching reply. Empty
	// means non-matching replies are ignored.
	WrongReplies []string
}

type replyCheckData struct {
	LastChecked time.Time `json:"last_checked"`
}

func (s *ReplyCheckStage) FastCondition(ctx context.Context, run *Run) (bool, error) {
	var d replyCheckData
	checked, err := run.StageData(&d)
	if err != nil {
		return false, err
	}
	if checked {
		return false, nil
	}
	return s.Condition(ctx, run)
}

func (s *ReplyCheckStage) Condition(ctx context.Context, run *Run) (bool, error) {
	pattern, err := regexp.Compile(s.Pattern)
	if err != nil {
		return false, fmt.Errorf("invalid reply pattern %q: %w", s.Pattern, err)
	}

	issue, err := issueNumber(run, s.IssueField)
	if err != nil {
		return false, err
	}

	var d replyCheckData
	if _, err := run.StageData(&d); err != nil {
		return false, err
	}
	since := d.LastChecked
	if s.SinceField != "" {
		v, err := Field(run.Data(), s.SinceField)
		if err != nil {
			return false, err
		}
		if t, ok := v.(time.Time); ok && t.After(since) {
			since = t
		}
	}

	comments, err := run.Character.CommentsFromUserSince(ctx, run.Game.ForkURL, issue, run.Game.PlayerID, since)
	if err != nil {
		return false, err
	}
	if err := run.SetStageData(replyCheckData{LastChecked: run.now()}); err != nil {
		return false, err
	}

	ids := make([]int64, 0, len(comments))
	for id := range comments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		match := pattern.FindStringSubmatch(comments[id])
		if match == nil {
			continue
		}
		for i, field := range s.CaptureFields {
			if i+1 >= len(match) {
				break
			}
			if err := SetField(run.Data(), field, match[i+1]); err != nil {
				return false, err
			}
		}
		if s.MatchIDField != "" {
			if err := SetField(run.Data(), s.MatchIDField, id); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	if len(comments) > 0 && len(s.WrongReplies) > 0 {
		reply := s.WrongReplies[rand.Intn(len(s.WrongReplies))]
		if _, err := run.Character.CreateComment(ctx, run.Game.ForkURL, issue, reply); err != nil {
			return false, err
		}
	}
	return false, nil
}

func issueNumber(run *Run, field string) (int, error) {
	v, err := Field(run.Data(), field)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("quest data field %q does not hold an issue number (%T)", field, v)
	}
	n := int(f)
	if n <= 0 {
		return 0, fmt.Errorf("quest data field %q has no issue recorded yet", field)
	}
	return n, nil
}
