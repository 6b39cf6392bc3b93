package shell

// MenuID 托盘菜单项的稳定标识。前端与托盘共用这组字符串，属于对外契约，
// 不允许随版本变动。
type MenuID string

const (
	MenuShow   MenuID = "show"
	MenuHide   MenuID = "hide"
	MenuStatus MenuID = "status"
	MenuDocs   MenuID = "docs"
	MenuQuit   MenuID = "quit"
)

// ParseMenuID 校验菜单 id 是否属于已知集合。
// 未知 id 返回 ok=false，由调用方决定忽略还是报错。
func ParseMenuID(raw string) (MenuID, bool) {
	switch MenuID(raw) {
	case MenuShow, MenuHide, MenuStatus, MenuDocs, MenuQuit:
		return MenuID(raw), true
	default:
		return "", false
	}
}

// EventKind 事件类别。
type EventKind int

const (
	// EventTrayActivated 托盘图标被激活（左键单击/双击，平台相关）。
	EventTrayActivated EventKind = iota
	// EventMenuClicked 托盘菜单项被点击，MenuID 字段有效。
	EventMenuClicked
	// EventCloseRequested 窗口收到关闭请求（标题栏 X 按钮）。
	EventCloseRequested
)

// Event 托盘/窗口事件。只有 EventMenuClicked 使用 MenuID 字段。
type Event struct {
	Kind   EventKind
	MenuID MenuID
}

func TrayActivated() Event        { return Event{Kind: EventTrayActivated} }
func MenuClicked(id MenuID) Event { return Event{Kind: EventMenuClicked, MenuID: id} }
func CloseRequested() Event       { return Event{Kind: EventCloseRequested} }
