package console

import "github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

type ScreenKind string

const (
	ScreenList   ScreenKind = "list"
	ScreenCreate ScreenKind = "create"
	ScreenDetail ScreenKind = "detail"
)

// Screen 是 List | Create | Detail 三选一，Detail 必然带着一个任务。
type Screen interface {
	Kind() ScreenKind
	isScreen()
}

type ListScreen struct{}

type CreateScreen struct {
	Form TaskForm
}

type DetailScreen struct {
	Task entity.FineTuneTask
	Tab  DetailTab
}

func (ListScreen) Kind() ScreenKind   { return ScreenList }
func (CreateScreen) Kind() ScreenKind { return ScreenCreate }
func (DetailScreen) Kind() ScreenKind { return ScreenDetail }

func (ListScreen) isScreen()   {}
func (CreateScreen) isScreen() {}
func (DetailScreen) isScreen() {}

type DetailTab string

const (
	TabOverview     DetailTab = "overview"
	TabVerification DetailTab = "verification"
)

func (t DetailTab) Valid() bool {
	return t == TabOverview || t == TabVerification
}
