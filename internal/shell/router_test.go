package shell

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeWindow struct {
	shows   int
	hides   int
	focuses int
}

func (w *fakeWindow) Show()  { w.shows++ }
func (w *fakeWindow) Hide()  { w.hides++ }
func (w *fakeWindow) Focus() { w.focuses++ }

func newTestRouter(t *testing.T, w *fakeWindow, opts RouterOptions) *Router {
	t.Helper()
	opts.Window = w
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewRouter(opts)
}

func TestParseMenuID(t *testing.T) {
	for _, raw := range []string{"show", "hide", "status", "docs", "quit"} {
		id, ok := ParseMenuID(raw)
		if !ok {
			t.Fatalf("已知菜单 id %q 解析失败", raw)
		}
		if string(id) != raw {
			t.Fatalf("菜单 id 不应被改写: got %q want %q", id, raw)
		}
	}

	if _, ok := ParseMenuID("settings"); ok {
		t.Fatal("未知菜单 id 不应解析成功")
	}
	if _, ok := ParseMenuID(""); ok {
		t.Fatal("空菜单 id 不应解析成功")
	}
}

func TestTrayActivatedShowsAndFocuses(t *testing.T) {
	w := &fakeWindow{}
	r := newTestRouter(t, w, RouterOptions{})

	r.Handle(TrayActivated())

	if w.shows != 1 || w.focuses != 1 {
		t.Fatalf("托盘激活应显示并聚焦窗口: shows=%d focuses=%d", w.shows, w.focuses)
	}
	if w.hides != 0 {
		t.Fatalf("托盘激活不应隐藏窗口: hides=%d", w.hides)
	}
}

func TestMenuShowAndStatusShowFocus(t *testing.T) {
	for _, id := range []MenuID{MenuShow, MenuStatus} {
		w := &fakeWindow{}
		var navigated string
		r := newTestRouter(t, w, RouterOptions{
			OnNavigate: func(page string) { navigated = page },
		})

		r.Handle(MenuClicked(id))

		if w.shows != 1 || w.focuses != 1 {
			t.Fatalf("菜单 %s 应显示并聚焦窗口: shows=%d focuses=%d", id, w.shows, w.focuses)
		}
		if id == MenuStatus && navigated != "status" {
			t.Fatalf("菜单 status 应请求前端跳转状态页: got %q", navigated)
		}
		if id == MenuShow && navigated != "" {
			t.Fatalf("菜单 show 不应触发页面跳转: got %q", navigated)
		}
	}
}

func TestMenuHideHidesWindow(t *testing.T) {
	w := &fakeWindow{}
	r := newTestRouter(t, w, RouterOptions{})

	r.Handle(MenuClicked(MenuHide))

	if w.hides != 1 {
		t.Fatalf("菜单 hide 应隐藏窗口: hides=%d", w.hides)
	}
	if w.shows != 0 || w.focuses != 0 {
		t.Fatalf("菜单 hide 不应显示窗口: shows=%d focuses=%d", w.shows, w.focuses)
	}
}

func TestMenuQuitCallsQuit(t *testing.T) {
	w := &fakeWindow{}
	quitCalled := false
	r := newTestRouter(t, w, RouterOptions{
		Quit: func() { quitCalled = true },
	})

	r.Handle(MenuClicked(MenuQuit))

	if !quitCalled {
		t.Fatal("菜单 quit 应触发退出回调")
	}
	if w.shows != 0 && w.hides != 0 {
		t.Fatal("菜单 quit 不应操作窗口")
	}
}

func TestMenuDocsOpensURLAndSwallowsError(t *testing.T) {
	w := &fakeWindow{}
	var opened []string
	r := newTestRouter(t, w, RouterOptions{
		DocsURL: "http://localhost:8000/docs",
		OpenURL: func(url string) error {
			opened = append(opened, url)
			return errors.New("no browser available")
		},
	})

	// openURL 返回错误也不应 panic 或改变窗口状态。
	r.Handle(MenuClicked(MenuDocs))

	if len(opened) != 1 || opened[0] != "http://localhost:8000/docs" {
		t.Fatalf("菜单 docs 应打开文档地址: %v", opened)
	}
	if w.shows != 0 || w.hides != 0 || w.focuses != 0 {
		t.Fatal("菜单 docs 不应操作窗口")
	}
}

func TestUnknownMenuIDIsNoop(t *testing.T) {
	w := &fakeWindow{}
	quitCalled := false
	r := newTestRouter(t, w, RouterOptions{
		Quit:    func() { quitCalled = true },
		OpenURL: func(string) error { t.Fatal("未知 id 不应打开链接"); return nil },
	})

	r.Handle(MenuClicked(MenuID("bogus")))

	if quitCalled || w.shows != 0 || w.hides != 0 || w.focuses != 0 {
		t.Fatal("未知菜单 id 应被静默忽略")
	}
}

func TestCloseRequestedHidesNeverQuits(t *testing.T) {
	w := &fakeWindow{}
	quitCalled := false
	r := newTestRouter(t, w, RouterOptions{
		Quit: func() { quitCalled = true },
	})

	// 反复关闭也应始终隐藏，窗口与进程保持存活。
	for i := 0; i < 3; i++ {
		r.Handle(CloseRequested())
	}

	if w.hides != 3 {
		t.Fatalf("关闭请求应每次都隐藏窗口: hides=%d", w.hides)
	}
	if quitCalled {
		t.Fatal("关闭请求绝不应退出应用")
	}
}
