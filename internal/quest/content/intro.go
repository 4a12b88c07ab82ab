// Package content declares the game's quest definitions and registers them
// at process start.
package content

import (
	"time"

	"github.com/gitforged/server/internal/quest"
)

// introData is the intro quest's data bag.
type introData struct {
	WelcomeIssue    int       `json:"welcome_issue"`
	LastCommentTime time.Time `json:"last_comment_time"`
	PlayerName      string    `json:"player_name"`
	ReplyCommentID  int64     `json:"reply_comment_id"`
}

// IntroQuest greets a new player on their fork: a character opens a welcome
// issue, holds a short scripted conversation, waits for the player to
// introduce themselves, and closes out after a pause.
func IntroQuest() *quest.Definition {
	return &quest.Definition{
		Name:        "IntroQuest",
		Version:     "1.1.0",
		Difficulty:  quest.DifficultyBeginner,
		Description: "A mysterious stranger notices your fork.",
		NewData: func() any {
			return &introData{}
		},
		Stages: map[string]quest.Stage{
			"Start": &quest.BaseStage{
				Kids: []string{"OpenWelcomeIssue"},
			},
			"OpenWelcomeIssue": &quest.CreateIssueStage{
				BaseStage: quest.BaseStage{Kids: []string{"Conversation"}},
				Title:     "A stranger approaches",
				Body: "Well now. Not many travellers find their way to this corner " +
					"of the forge. This copy of the world is yours to shape.\n\n" +
					"Stay a while, I have questions for you.",
				IssueField: "welcome_issue",
			},
			"Conversation": &quest.CommentStage{
				BaseStage:  quest.BaseStage{Kids: []string{"AskName"}},
				IssueField: "welcome_issue",
				Comments: []string{
					"The stranger pulls up a crate and sits down across from you.",
					"\"Every smith who works this forge leaves a mark on it. Before you " +
						"light your first fire, I'll need something from you.\"",
				},
			},
			"AskName": &quest.CommentStage{
				BaseStage:  quest.BaseStage{Kids: []string{"AwaitName"}},
				IssueField: "welcome_issue",
				Comments: []string{
					"\"Tell me your name, traveller. Write it like so: my name is <name>\"",
				},
				TimeField: "last_comment_time",
			},
			"AwaitName": &quest.ReplyCheckStage{
				BaseStage:     quest.BaseStage{Kids: []string{"Ponder"}},
				IssueField:    "welcome_issue",
				Pattern:       `(?i)my name is ([\w\- ]+)`,
				CaptureFields: []string{"player_name"},
				MatchIDField:  "reply_comment_id",
				SinceField:    "last_comment_time",
				WrongReplies: []string{
					"\"Hm? Speak up. Your name, like so: my name is <name>\"",
					"\"That doesn't sound like a name to me. Try: my name is <name>\"",
				},
			},
			"Ponder": &quest.DelayStage{
				BaseStage: quest.BaseStage{Kids: []string{"Farewell"}},
				Duration:  2 * time.Minute,
			},
			"Farewell": &quest.CommentStage{
				BaseStage:  quest.BaseStage{Kids: []string{"Ending"}},
				IssueField: "welcome_issue",
				Comments: []string{
					"The stranger nods slowly, as if weighing your name against " +
						"something only they can see.",
					"\"Good. The forge will remember you. We'll speak again soon.\"",
				},
			},
			"Ending": &quest.TerminalStage{},
		},
	}
}
