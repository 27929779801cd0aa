/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command gallerybuilder edits photo gallery layouts, renders them against a
// photo collection, exports the result and serves the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/backend"
	"gallerybuilder/internal/config"
	"gallerybuilder/internal/crash"
	"gallerybuilder/internal/export"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/photos"
	"gallerybuilder/internal/textlayout"
	"gallerybuilder/internal/tiling"
	"gallerybuilder/internal/ui"
	"gallerybuilder/internal/version"
)

// errUsage makes main print the usage text and exit 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintf(w, "Gallery Builder %s\n\n", version.String())
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gallerybuilder version                                 Show version")
	fmt.Fprintln(w, "  gallerybuilder config [path|show]                      Show config file path or effective config")
	fmt.Fprintln(w, "  gallerybuilder layouts list                            List saved layouts")
	fmt.Fprintln(w, "  gallerybuilder layouts show <id>                       Print a saved layout as JSON")
	fmt.Fprintln(w, "  gallerybuilder layouts delete <id>                     Delete a saved layout")
	fmt.Fprintln(w, "  gallerybuilder layouts import <file> [name]            Save a layout JSON file")
	fmt.Fprintln(w, "  gallerybuilder render <id> [width height direction]    Print the render plan for the photo collection")
	fmt.Fprintln(w, "  gallerybuilder export <id> <format> <out> [quality]    Export png|jpg|zip|pdf|svg")
	fmt.Fprintln(w, "  gallerybuilder assets list <category>                  List uploaded stickers|frames|backgrounds")
	fmt.Fprintln(w, "  gallerybuilder assets put <category> <file>            Upload an asset")
	fmt.Fprintln(w, "  gallerybuilder assets pack-export <zip>                Write every uploaded asset to a zip")
	fmt.Fprintln(w, "  gallerybuilder assets pack-import <zip>                Upload every asset of a zip")
	fmt.Fprintln(w, "  gallerybuilder serve                                   Run the HTTP API")
	fmt.Fprintln(w, "  gallerybuilder token [subject] [ttl]                   Mint an API write token from GB_AUTH_SECRET")
	fmt.Fprintln(w, "  gallerybuilder ui [id]                                 Launch the desktop editor (build with -tags fyne)")
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage(os.Stdout)
		return
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "serve":
		// .env is optional; real environment variables win
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "Error: .env:", err)
			os.Exit(1)
		}
	}

	e, err := loadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer crash.Recover(nil)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, e, args, os.Stdout)
	stop()
	if cerr := e.Close(); cerr != nil {
		e.log.Warn("shutdown", slog.Any("err", cerr))
	}
	switch {
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fatal(e.log, args[0]+" failed", err)
	}
}

func run(ctx context.Context, e *env, args []string, out io.Writer) error {
	e.log.Debug("command", slog.String("cmd", args[0]), slog.Int("args", len(args)-1))
	switch args[0] {
	case "config":
		return cmdConfig(e, args[1:], out)
	case "layouts":
		return cmdLayouts(ctx, e, args[1:], out)
	case "render":
		return cmdRender(ctx, e, args[1:], out)
	case "export":
		return cmdExport(ctx, e, args[1:], out)
	case "assets":
		return cmdAssets(ctx, e, args[1:], out)
	case "serve":
		srv, err := e.server(ctx)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	case "token":
		return cmdToken(args[1:], out)
	case "ui":
		var id string
		if len(args) > 1 {
			id = args[1]
		}
		opts, err := e.uiOptions(ctx, id)
		if err != nil {
			return err
		}
		return ui.Run(opts)
	}
	return errUsage
}

func cmdToken(args []string, out io.Writer) error {
	if len(args) > 2 {
		return errUsage
	}
	subject, ttl := "cli", time.Hour
	if len(args) > 0 {
		subject = args[0]
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 || d > backend.MaxTokenTTL {
			return fmt.Errorf("invalid ttl %q (max %s)", args[1], backend.MaxTokenTTL)
		}
		ttl = d
	}
	tok, exp, err := backend.IssueToken(config.AuthSecret(), subject, ttl)
	if err != nil {
		return fmt.Errorf("%w: set %s", err, config.EnvAuthSecret)
	}
	fmt.Fprintf(out, "%s\n# expires %s\n", tok, exp.Local().Format(time.DateTime))
	return nil
}

func cmdConfig(e *env, args []string, out io.Writer) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "path":
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, p)
		return nil
	case "show":
		b, err := yaml.Marshal(e.cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = out.Write(b)
		for _, key := range []string{"storage.driver", "storage.path", "assets.driver", "photos.source", "server.addr"} {
			if env, ok := config.EnvOverrideFor(key); ok {
				fmt.Fprintf(out, "# %s overridden by %s\n", key, env)
			}
		}
		return err
	}
	return errUsage
}

func cmdLayouts(ctx context.Context, e *env, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	reg, err := e.registry(ctx)
	if err != nil {
		return err
	}
	switch {
	case args[0] == "list":
		list, err := reg.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tELEMENTS\tSLOTS\tUPDATED")
		for _, l := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", l.ID, l.Name, len(l.Schema.Elements), l.Schema.PhotoSlots(), l.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	case args[0] == "show" && len(args) == 2:
		l, err := reg.Get(ctx, args[1])
		if err != nil {
			return err
		}
		b, err := layout.EncodeIndent(l.Schema)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", b)
		return err
	case args[0] == "delete" && len(args) == 2:
		if err := reg.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted", args[1])
		return nil
	case args[0] == "import" && len(args) >= 2:
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read layout: %w", err)
		}
		schema, err := layout.Decode(data)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(args[1]), filepath.Ext(args[1]))
		if len(args) > 2 {
			name = args[2]
		}
		saved, err := reg.Save(ctx, name, schema)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %q as %s\n", saved.Name, saved.ID)
		return nil
	}
	return errUsage
}

// gallery loads layout id with its assets and tiles the photo collection over it.
func (e *env) gallery(ctx context.Context, id string, viewport geometry.Size, dir tiling.Direction) (tiling.Gallery, error) {
	reg, err := e.registry(ctx)
	if err != nil {
		return tiling.Gallery{}, err
	}
	saved, err := reg.Load(ctx, id)
	if err != nil {
		return tiling.Gallery{}, err
	}
	provider, err := e.photos()
	if err != nil {
		return tiling.Gallery{}, err
	}
	items, err := provider.Photos(ctx)
	if err != nil {
		e.log.Warn("photo provider failed, using placeholders", slog.Any("err", err))
		items = photos.PlaceholderPhotos()
	}
	res := assets.NewResolver(e.assets, e.catalog(), assets.ResolverOptions{})
	defer res.Close()
	if viewport.Empty() {
		viewport = saved.Schema.Canvas
	}
	return tiling.Render(tiling.Input{
		Schema:    saved.Schema,
		Photos:    items,
		Viewport:  viewport,
		Direction: dir,
		Assets:    res,
	}), nil
}

func cmdRender(ctx context.Context, e *env, args []string, out io.Writer) error {
	if len(args) != 1 && len(args) != 3 && len(args) != 4 {
		return errUsage
	}
	vp := geometry.Size{W: e.cfg.Gallery.ViewportWidth, H: e.cfg.Gallery.ViewportHeight}
	dir := e.direction()
	if len(args) >= 3 {
		w, err1 := strconv.ParseFloat(args[1], 64)
		h, err2 := strconv.ParseFloat(args[2], 64)
		if err := errors.Join(err1, err2); err != nil {
			return fmt.Errorf("viewport: %w", err)
		}
		vp = geometry.Size{W: w, H: h}
	}
	if len(args) == 4 {
		d, err := tiling.ParseDirection(args[3])
		if err != nil {
			return err
		}
		dir = d
	}
	g, err := e.gallery(ctx, args[0], vp, dir)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

func cmdExport(ctx context.Context, e *env, args []string, out io.Writer) error {
	if len(args) < 3 || len(args) > 4 {
		return errUsage
	}
	format, err := export.ParseFormat(args[1])
	if err != nil {
		return err
	}
	quality := e.cfg.Export.Quality
	if len(args) == 4 {
		quality = args[3]
	}
	q, err := export.ParseQuality(quality)
	if err != nil {
		return err
	}
	size, err := export.ParseSize(e.cfg.Export.Size)
	if err != nil {
		return err
	}
	text, err := textlayout.Open(e.cfg.Export.FontFile)
	if err != nil {
		return fmt.Errorf("caption font: %w", err)
	}
	g, err := e.gallery(ctx, args[0], geometry.Size{}, e.direction())
	if err != nil {
		return err
	}
	res, err := export.Export(ctx, g, args[2], export.Options{
		Format:          format,
		Quality:         q,
		Size:            size,
		IncludeMetadata: e.cfg.Export.IncludeMetadata,
		Title:           args[0],
		Text:            text,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d tile(s) as %s:\n", res.Tiles, res.Format)
	for _, f := range res.Files {
		fmt.Fprintln(out, " ", f)
	}
	return nil
}

func cmdAssets(ctx context.Context, e *env, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	store, err := e.assetStore(ctx)
	if err != nil {
		return err
	}
	switch args[0] {
	case "list":
		cat, err := assets.ParseCategory(args[1])
		if err != nil {
			return err
		}
		list, err := store.List(ctx, cat)
		if err != nil {
			return err
		}
		for _, a := range list {
			fmt.Fprintf(out, "%s\t%s\t%d bytes\n", a.Name, a.ContentType, len(a.Data))
		}
		return nil
	case "put":
		if len(args) != 3 {
			return errUsage
		}
		cat, err := assets.ParseCategory(args[1])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read asset: %w", err)
		}
		name := filepath.Base(args[2])
		if err := store.Put(ctx, cat, name, data); err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored %s/%s\n", cat, name)
		return nil
	case "pack-export":
		n, err := assets.ExportPackFile(ctx, store, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d asset(s) to %s\n", n, args[1])
		return nil
	case "pack-import":
		n, err := assets.ImportPack(ctx, store, args[1], true)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d asset(s)\n", n)
		return nil
	}
	return errUsage
}
