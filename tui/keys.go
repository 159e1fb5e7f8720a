package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	New      key.Binding
	Reopen   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Left     key.Binding
	Right    key.Binding
	Advanced key.Binding
	Submit   key.Binding
	Back     key.Binding
	Tab      key.Binding
	Run      key.Binding
	Stop     key.Binding
	Edit     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "上移")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "下移")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "查看详情")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "新建任务")),
		Reopen:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "回到上次查看")),
		Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "下一项")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "上一项")),
		Left:     key.NewBinding(key.WithKeys("left"), key.WithHelp("left", "上一个选项")),
		Right:    key.NewBinding(key.WithKeys("right"), key.WithHelp("right", "下一个选项")),
		Advanced: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "高级参数")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "提交")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "返回")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "切换标签")),
		Run:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "运行对比")),
		Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "取消对比")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "编辑提示词")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "退出")),
	}
}

// screenKeys 按当前页面给 help 组件提供按键说明
type screenKeys struct {
	short []key.Binding
}

func (k screenKeys) ShortHelp() []key.Binding  { return k.short }
func (k screenKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.short} }

type styles struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	tabActive lipgloss.Style
	panel     lipgloss.Style
	selected  lipgloss.Style
	dim       lipgloss.Style
	notice    lipgloss.Style
	pending   lipgloss.Style
	running   lipgloss.Style
	completed lipgloss.Style
	failed    lipgloss.Style
	graphLoss lipgloss.Style
}

func defaultStyles() styles {
	brand := lipgloss.AdaptiveColor{Light: "26", Dark: "81"}
	subtle := lipgloss.AdaptiveColor{Light: "245", Dark: "244"}
	border := lipgloss.AdaptiveColor{Light: "250", Dark: "238"}
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(brand),
		tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(subtle),
		tabActive: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("15")).Background(brand),
		panel:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(brand),
		dim:       lipgloss.NewStyle().Foreground(subtle),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		pending:   lipgloss.NewStyle().Foreground(subtle),
		running:   lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true),
		completed: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		graphLoss: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}
