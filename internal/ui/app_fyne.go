//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/crash"
	"gallerybuilder/internal/editor"
	"gallerybuilder/internal/export"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/photos"
	"gallerybuilder/internal/tiling"
	"gallerybuilder/internal/version"
)

type window struct {
	opts    Options
	res     *assets.Resolver
	w       fyne.Window
	surface *editor.Surface
	ctrl    *Controller
	canvas  *LayoutCanvas
	status  *widget.Label
	saved   layout.SavedLayout // zero until saved or opened
	log     *slog.Logger
}

// Run opens the editor window and blocks until it is closed.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	ui := &window{opts: opts, log: l, status: widget.NewLabel("Ready")}
	surfaceOpts := opts.Surface
	surfaceOpts.OnChange = func() {
		if ui.canvas != nil {
			ui.canvas.Refresh()
		}
	}
	ui.surface = editor.New(surfaceOpts)
	defer crash.Recover(ui.surface)

	ui.res = assets.NewResolver(opts.Assets, opts.Catalog, assets.ResolverOptions{
		OnResolved: func(assets.Category, string) { fyne.Do(ui.canvas.Refresh) },
	})
	defer ui.res.Close()
	ui.ctrl = NewController(ui.surface, opts.Gesture)
	ui.canvas = NewLayoutCanvas(ui.ctrl, ui.res)

	a := app.NewWithID("gallerybuilder")
	ui.w = a.NewWindow("Gallery Builder")
	prefs := a.Preferences()
	ui.w.Resize(fyne.NewSize(
		float32(max(800, prefs.IntWithFallback("window.width", 1200))),
		float32(max(600, prefs.IntWithFallback("window.height", 800))),
	))
	ui.w.SetOnClosed(func() {
		sz := ui.w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	ui.w.SetContent(container.NewBorder(ui.toolbar(), ui.status, nil, nil, ui.canvas))
	ui.shortcuts()

	if opts.LayoutID != "" {
		ui.open(opts.LayoutID)
	} else {
		ui.offerDraft()
	}
	ui.w.ShowAndRun()
	return nil
}

func (ui *window) setStatus(format string, args ...any) {
	ui.status.SetText(fmt.Sprintf(format, args...))
}

func (ui *window) fail(op string, err error) {
	ui.log.Error(op+" failed", slog.Any("err", err))
	dialog.ShowError(err, ui.w)
}

func (ui *window) toolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewButton("Photo", func() { ui.surface.AddPhoto(); ui.setStatus("Photo slot added") }),
		widget.NewButton("Sticker", ui.addSticker),
		widget.NewButton("Frame", ui.addFrame),
		widget.NewButton("Background", ui.pickBackground),
		widget.NewSeparator(),
		widget.NewButton("Front", func() { ui.reorder(ui.surface.BringToFront) }),
		widget.NewButton("Back", func() { ui.reorder(ui.surface.SendToBack) }),
		widget.NewButton("Delete", ui.deleteSelected),
		widget.NewSeparator(),
		widget.NewButton("Open", ui.showOpen),
		widget.NewButton("Save", ui.save),
		widget.NewButton("Preview", ui.preview),
	)
}

func (ui *window) shortcuts() {
	c := ui.w.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { ui.save() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { ui.showOpen() })
	c.SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			ui.deleteSelected()
		case fyne.KeyEscape:
			ui.surface.ClearSelection()
		}
	})
}

func (ui *window) reorder(op func(id string) error) {
	id := ui.surface.Selected()
	if id == "" {
		ui.setStatus("Nothing selected")
		return
	}
	if err := op(id); err != nil {
		ui.setStatus("%v", err)
	}
}

func (ui *window) deleteSelected() {
	if err := ui.ctrl.DeleteSelected(); err != nil {
		if !errors.Is(err, editor.ErrNoSuchElement) {
			ui.fail("delete", err)
		}
		return
	}
	ui.setStatus("Element deleted")
}

func (ui *window) addSticker() {
	emoji := widget.NewEntry()
	emoji.SetPlaceHolder("Emoji, e.g. ⭐")
	named := widget.NewSelect(ui.catalogNames(assets.Stickers), nil)
	dialog.ShowForm("Add sticker", "Add", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Emoji", emoji),
		widget.NewFormItem("Or asset", named),
	}, func(ok bool) {
		if !ok {
			return
		}
		st := layout.Sticker{Emoji: emoji.Text}
		if st.Emoji == "" {
			st.Name = named.Selected
		}
		ui.surface.AddSticker(st)
	}, ui.w)
}

func (ui *window) addFrame() {
	style := widget.NewSelect([]string{
		string(layout.FrameSimple), string(layout.FrameRounded), string(layout.FramePolaroid), string(layout.FrameVintage),
	}, nil)
	style.SetSelected(string(layout.FrameSimple))
	col := widget.NewEntry()
	col.SetText("#1f2937")
	thick := widget.NewEntry()
	thick.SetText("4")
	dialog.ShowForm("Add frame", "Add", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Style", style),
		widget.NewFormItem("Color", col),
		widget.NewFormItem("Thickness", thick),
	}, func(ok bool) {
		if !ok {
			return
		}
		t, err := strconv.ParseFloat(thick.Text, 64)
		if err != nil || t <= 0 {
			t = 4
		}
		ui.surface.AddFrame(layout.FrameDecor{Style: layout.FrameStyle(style.Selected), Color: col.Text, Thickness: t})
	}, ui.w)
}

func (ui *window) pickBackground() {
	names := append([]string{"(none)"}, ui.catalogNames(assets.Backgrounds)...)
	sel := widget.NewSelect(names, nil)
	sel.SetSelected(names[0])
	dialog.ShowForm("Background", "Apply", "Cancel", []*widget.FormItem{widget.NewFormItem("Image", sel)}, func(ok bool) {
		if !ok {
			return
		}
		if sel.Selected == "(none)" {
			ui.surface.ClearBackground()
			return
		}
		ui.surface.AddBackground(layout.Background{Name: sel.Selected})
	}, ui.w)
}

func (ui *window) catalogNames(cat assets.Category) []string {
	var names []string
	for _, e := range ui.res.Catalog().Entries(cat) {
		names = append(names, assets.BaseName(e.File))
	}
	return names
}

func (ui *window) showOpen() {
	if ui.opts.Registry == nil {
		ui.setStatus("No layout storage configured")
		return
	}
	list, err := ui.opts.Registry.List(context.Background())
	if err != nil {
		ui.fail("list layouts", err)
		return
	}
	if len(list) == 0 {
		ui.setStatus("No saved layouts")
		return
	}
	labels := make([]string, len(list))
	for i, s := range list {
		labels[i] = fmt.Sprintf("%s  (%s)", s.Name, s.CreatedAt.Local().Format(time.DateTime))
	}
	sel := widget.NewSelect(labels, nil)
	dialog.ShowForm("Open layout", "Open", "Cancel", []*widget.FormItem{widget.NewFormItem("Layout", sel)}, func(ok bool) {
		if ok && sel.SelectedIndex() >= 0 {
			ui.open(list[sel.SelectedIndex()].ID)
		}
	}, ui.w)
}

func (ui *window) open(id string) {
	if ui.opts.Registry == nil {
		return
	}
	saved, err := ui.opts.Registry.Load(context.Background(), id)
	if err != nil {
		ui.fail("open layout", err)
		return
	}
	ui.surface.Load(saved.Schema)
	ui.ctrl.Sync()
	ui.saved = saved
	ui.w.SetTitle("Gallery Builder - " + saved.Name)
	ui.setStatus("Opened %q (%d elements)", saved.Name, ui.surface.Len())
}

func (ui *window) offerDraft() {
	draft, path, err := crash.LatestDraft()
	if err != nil {
		return
	}
	dialog.ShowConfirm("Restore draft", "A draft was saved after a crash. Restore it?", func(ok bool) {
		if ok {
			ui.surface.Load(draft)
			ui.ctrl.Sync()
			ui.setStatus("Draft restored from %s", path)
		}
	}, ui.w)
}

func (ui *window) save() {
	if ui.opts.Registry == nil {
		ui.setStatus("No layout storage configured")
		return
	}
	name := widget.NewEntry()
	name.SetText(ui.saved.Name)
	dialog.ShowForm("Save layout", "Save", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
		if !ok {
			return
		}
		ctx := context.Background()
		schema := ui.surface.ExportLayout()
		var (
			saved layout.SavedLayout
			err   error
		)
		if ui.saved.ID != "" {
			saved, err = ui.opts.Registry.Update(ctx, ui.saved.ID, name.Text, schema)
		} else {
			saved, err = ui.opts.Registry.Save(ctx, name.Text, schema)
		}
		if err != nil {
			ui.fail("save layout", err)
			return
		}
		ui.saved = saved
		ui.w.SetTitle("Gallery Builder - " + saved.Name)
		ui.setStatus("Saved %q", saved.Name)
	}, ui.w)
}

// preview renders the first tile of the current layout with the configured
// photos, as the gallery page would show it.
func (ui *window) preview() {
	provider := ui.opts.Photos
	if provider == nil {
		provider = photos.Placeholder()
	}
	schema := ui.surface.ExportLayout()
	ui.setStatus("Rendering preview…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		items, err := provider.Photos(ctx)
		if err != nil {
			ui.log.Warn("photo provider failed, using placeholders", slog.Any("err", err))
			items = photos.PlaceholderPhotos()
		}
		g := tiling.Render(tiling.Input{
			Schema:    schema,
			Photos:    items,
			Viewport:  schema.Canvas,
			Direction: ui.opts.Direction,
			Assets:    ui.res,
		})
		if len(g.Tiles) == 0 {
			fyne.Do(func() { ui.setStatus("Nothing to preview") })
			return
		}
		r := export.NewRasterizer(ctx, g, export.Options{Quality: export.QualityMedium, IncludeMetadata: true})
		img := r.Tile(g.Tiles[0])
		fyne.Do(func() {
			pw := fyne.CurrentApp().NewWindow(fmt.Sprintf("Preview (%d tiles, %d photos)", len(g.Tiles), g.PhotoCount))
			ci := canvas.NewImageFromImage(img)
			ci.FillMode = canvas.ImageFillContain
			pw.SetContent(ci)
			pw.Resize(fyne.NewSize(float32(img.Bounds().Dx()), float32(img.Bounds().Dy())))
			pw.Show()
			ui.setStatus("Preview ready")
		})
	}()
}
