//go:build !stub

package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"reveris-desktop/internal/shell"
)

type systrayController struct {
	opts      Options
	ctx       context.Context
	quitCh    chan struct{}
	once      sync.Once
	running   bool
	runningMu sync.Mutex
}

func (c *systrayController) Stop() {
	c.once.Do(func() {
		c.runningMu.Lock()
		if c.running {
			systray.Quit()
			c.running = false
		}
		c.runningMu.Unlock()
		close(c.quitCh)
	})
}

func start(ctx context.Context, opts Options) (Controller, error) {
	ctrl := &systrayController{
		opts:   opts,
		ctx:    ctx,
		quitCh: make(chan struct{}),
	}

	// systray.Run 会阻塞，在单独的 goroutine 中运行
	go func() {
		ctrl.runningMu.Lock()
		ctrl.running = true
		ctrl.runningMu.Unlock()

		systray.Run(
			func() { ctrl.onReady() },
			func() { ctrl.onExit() },
		)
	}()

	return ctrl, nil
}

func (c *systrayController) onReady() {
	// 设置图标
	if len(c.opts.Icon) > 0 {
		systray.SetIcon(c.opts.Icon)
	}

	// 设置 tooltip
	if c.opts.Tooltip != "" {
		systray.SetTooltip(c.opts.Tooltip)
	} else {
		systray.SetTooltip("Reveris Noctis")
	}

	// 按 trayMenu 表挂载固定菜单，每项一个点击监听 goroutine。
	// 注：getlantern/systray 不支持图标单击事件，“显示”只能走菜单项。
	for _, entry := range trayMenu {
		id, ok := shell.ParseMenuID(entry.id)
		if !ok {
			continue
		}
		if entry.sepBefore {
			systray.AddSeparator()
		}
		item := systray.AddMenuItem(entry.title, entry.tooltip)
		go c.clickLoop(item, id)
	}
}

func (c *systrayController) clickLoop(item *systray.MenuItem, id shell.MenuID) {
	for {
		select {
		case <-c.quitCh:
			return
		case <-item.ClickedCh:
			c.emit(shell.MenuClicked(id))
		}
	}
}

func (c *systrayController) emit(ev shell.Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(ev)
	}
}

func (c *systrayController) onExit() {
	// 清理
}
