package tray

// menuEntry 一个托盘菜单项。id 必须属于 shell.MenuID 集合，
// 挂载时经 shell.ParseMenuID 校验，校验不过的条目不挂载。
type menuEntry struct {
	id        string
	title     string
	tooltip   string
	sepBefore bool
}

// trayMenu 固定菜单。顺序与 id 是对外契约，见 shell.MenuID。
var trayMenu = []menuEntry{
	{id: "show", title: "显示主窗口", tooltip: "显示应用主窗口"},
	{id: "hide", title: "隐藏到托盘", tooltip: "隐藏应用主窗口"},
	{id: "status", title: "系统状态", tooltip: "查看后端运行状态", sepBefore: true},
	{id: "docs", title: "API 文档", tooltip: "在浏览器中打开后端 API 文档"},
	{id: "quit", title: "退出", tooltip: "退出应用", sepBefore: true},
}
