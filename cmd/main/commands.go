package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/domain/task"
	"github.com/dirneetapp/carta2026.io/internal/queue"
	"github.com/dirneetapp/carta2026.io/internal/service"
	"github.com/dirneetapp/carta2026.io/internal/store"

	"gopkg.in/yaml.v3"
)

// CLI definition & global flags
type CLI struct {
	Config   string `short:"c" help:"Configuration file path (default: ./config.yaml when present)" type:"path"`
	LogLevel string `help:"Override log.level (debug, info, warn, error)"`

	Sync   SyncCmd   `cmd:"" help:"Normalize images, save and publish the site if the catalog changed"`
	Render RenderCmd `cmd:"" help:"Render and write every page"`
	List   ListCmd   `cmd:"" help:"Print the catalog tree"`
	Check  CheckCmd  `cmd:"" help:"Verify links, images and navigation of the rendered site"`
	Export ExportCmd `cmd:"" help:"Print the catalog as JSON or YAML"`

	AddCategory    AddCategoryCmd    `cmd:"" help:"Add a category"`
	AddSubcategory AddSubcategoryCmd `cmd:"" help:"Add a subcategory to a category"`
	AddItem        AddItemCmd        `cmd:"" help:"Add an item to a category or subcategory"`

	EditCategory    EditCategoryCmd    `cmd:"" help:"Replace a category's fields"`
	EditSubcategory EditSubcategoryCmd `cmd:"" help:"Replace a subcategory's fields"`
	EditItem        EditItemCmd        `cmd:"" help:"Replace an item's fields"`

	DeleteCategory    DeleteCategoryCmd    `cmd:"" help:"Delete a category with everything in it"`
	DeleteSubcategory DeleteSubcategoryCmd `cmd:"" help:"Delete a subcategory with its items"`
	DeleteItem        DeleteItemCmd        `cmd:"" help:"Delete an item"`

	Watch   WatchCmd   `cmd:"" help:"Republish whenever the catalog changes"`
	History HistoryCmd `cmd:"" help:"Show recent site publications (requires Redis)"`
}

type SyncCmd struct {
	Force bool `help:"Publish even if the catalog is unchanged since the last publication"`
}

func (c *SyncCmd) Run(rt *runtime) error {
	app, err := rt.container()
	if err != nil {
		return err
	}
	result, err := app.Service.Sync(rt.ctx, c.Force)
	if err != nil {
		return err
	}
	printPublish(rt, result)
	return nil
}

type RenderCmd struct{}

func (c *RenderCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	result, err := app.Service.Publish(rt.ctx)
	if err != nil {
		return err
	}
	printPublish(rt, result)
	return nil
}

func printPublish(rt *runtime, result *service.PublishResult) {
	if result.Skipped {
		fmt.Fprintf(rt.out, "Site is up to date (%s)\n", short(result.Revision))
		return
	}
	fmt.Fprintf(rt.out, "Published %d pages to %s (%d updated, %d removed)\n",
		len(result.Write.Pages), rt.cfg.Site.OutputDir, len(result.Write.Updated), len(result.Write.Removed))
}

type ListCmd struct{}

func (c *ListCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	rows := app.Service.Outline()
	if len(rows) == 0 {
		fmt.Fprintln(rt.out, "The catalog is empty")
		return nil
	}
	for _, row := range rows {
		indent := strings.Repeat("  ", row.Depth)
		switch row.Entity {
		case domain.EntityCategory:
			fmt.Fprintf(rt.out, "%s%s %s  %s  [%s]\n", indent, row.Description, row.ID, row.Name, row.Theme)
		case domain.EntitySubcategory:
			fmt.Fprintf(rt.out, "%s%s %s  %s\n", indent, row.Description, row.ID, row.Name)
		default:
			fmt.Fprintf(rt.out, "%s%s  %s  %s %s", indent, row.ID, row.Name, row.Price, rt.cfg.Site.Currency)
			if row.Description != "" {
				fmt.Fprintf(rt.out, "  %s", row.Description)
			}
			fmt.Fprintln(rt.out)
		}
	}
	return nil
}

type CheckCmd struct{}

func (c *CheckCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	problems, err := app.Service.Check(rt.ctx)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Fprintln(rt.out, p.String())
	}
	if len(problems) > 0 {
		return fmt.Errorf("site check found %d problems", len(problems))
	}
	fmt.Fprintln(rt.out, "Site OK")
	return nil
}

type ExportCmd struct {
	Format string `short:"f" enum:"json,yaml" default:"json" help:"Output format (json, yaml)"`
}

func (c *ExportCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	catalog := app.Service.Snapshot()

	if c.Format == "yaml" {
		enc := yaml.NewEncoder(rt.out)
		enc.SetIndent(2)
		if err := enc.Encode(catalog); err != nil {
			return fmt.Errorf("failed to encode catalog as YAML: %w", err)
		}
		return enc.Close()
	}

	data, err := domain.MarshalCatalog(catalog)
	if err != nil {
		return err
	}
	_, err = rt.out.Write(data)
	return err
}

type AddCategoryCmd struct {
	ID          string `arg:"" help:"Category id, also the page name"`
	Name        string `arg:"" help:"Display name"`
	Theme       string `short:"t" help:"Theme (gold, ocean, sunset, forest, lavender)"`
	Description string `short:"d" help:"Description shown on the index card"`
	Image       string `short:"i" help:"Image URL or local path"`
}

func (c *AddCategoryCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	return app.Service.AddCategory(rt.ctx, store.CategoryInput{
		ID: c.ID, Name: c.Name, Theme: c.Theme, Description: c.Description, Image: c.Image,
	})
}

type AddSubcategoryCmd struct {
	Category    string `arg:"" help:"Parent category id"`
	ID          string `arg:"" help:"Subcategory id"`
	Name        string `arg:"" help:"Display name"`
	Description string `short:"d" help:"Description"`
	Image       string `short:"i" help:"Image URL or local path"`
}

func (c *AddSubcategoryCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	return app.Service.AddSubcategory(rt.ctx, c.Category, store.SubcategoryInput{
		ID: c.ID, Name: c.Name, Description: c.Description, Image: c.Image,
	})
}

type AddItemCmd struct {
	Category    string `arg:"" help:"Category id"`
	ID          string `arg:"" help:"Item id, unique within the category"`
	Name        string `arg:"" help:"Display name"`
	Price       string `arg:"" help:"Price, e.g. 2.50"`
	Subcategory string `short:"s" help:"Place the item in this subcategory"`
	Description string `short:"d" help:"Description"`
	Image       string `short:"i" help:"Image URL or local path"`
}

func (c *AddItemCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	return app.Service.AddItem(rt.ctx, c.Category, c.Subcategory, store.ItemInput{
		ID: c.ID, Name: c.Name, Price: c.Price, Description: c.Description, Image: c.Image,
	})
}

// Edit commands replace every field: an omitted optional flag clears that field.

type EditCategoryCmd struct {
	ID          string `arg:"" help:"Category id"`
	Name        string `arg:"" help:"Display name"`
	Theme       string `short:"t" help:"Theme; empty resets to gold"`
	Description string `short:"d" help:"Description; empty removes it"`
	Image       string `short:"i" help:"Image URL or local path; empty removes it"`
}

func (c *EditCategoryCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	return app.Service.EditCategory(rt.ctx, c.ID, store.CategoryInput{
		Name: c.Name, Theme: c.Theme, Description: c.Description, Image: c.Image,
	})
}

type EditSubcategoryCmd struct {
	Category    string `arg:"" help:"Parent category id"`
	ID          string `arg:"" help:"Subcategory id"`
	Name        string `arg:"" help:"Display name"`
	Description string `short:"d" help:"Description; empty removes it"`
	Image       string `short:"i" help:"Image URL or local path; empty removes it"`
}

func (c *EditSubcategoryCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	return app.Service.EditSubcategory(rt.ctx, c.Category, c.ID, store.SubcategoryInput{
		Name: c.Name, Description: c.Description, Image: c.Image,
	})
}

type EditItemCmd struct {
	Category    string `arg:"" help:"Category id"`
	ID          string `arg:"" help:"Item id"`
	Name        string `arg:"" help:"Display name"`
	Price       string `arg:"" help:"Price, e.g. 2.50"`
	Description string `short:"d" help:"Description; empty clears it"`
	Image       string `short:"i" help:"Image URL or local path; empty removes it"`
}

func (c *EditItemCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	return app.Service.EditItem(rt.ctx, c.Category, c.ID, store.ItemInput{
		Name: c.Name, Price: c.Price, Description: c.Description, Image: c.Image,
	})
}

type DeleteCategoryCmd struct {
	ID string `arg:"" help:"Category id"`
}

func (c *DeleteCategoryCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	removed, err := app.Service.DeleteCategory(rt.ctx, c.ID)
	printRemoved(rt, removed, "category", c.ID)
	return err
}

type DeleteSubcategoryCmd struct {
	Category string `arg:"" help:"Parent category id"`
	ID       string `arg:"" help:"Subcategory id"`
}

func (c *DeleteSubcategoryCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	removed, err := app.Service.DeleteSubcategory(rt.ctx, c.Category, c.ID)
	printRemoved(rt, removed, "subcategory", c.Category+"/"+c.ID)
	return err
}

type DeleteItemCmd struct {
	Category string `arg:"" help:"Category id"`
	ID       string `arg:"" help:"Item id"`
}

func (c *DeleteItemCmd) Run(rt *runtime) error {
	app, err := rt.loaded()
	if err != nil {
		return err
	}
	removed, err := app.Service.DeleteItem(rt.ctx, c.Category, c.ID)
	printRemoved(rt, removed, "item", c.Category+"/"+c.ID)
	return err
}

func printRemoved(rt *runtime, removed bool, entity, id string) {
	if removed {
		fmt.Fprintf(rt.out, "Deleted %s %s\n", entity, id)
	} else {
		fmt.Fprintf(rt.out, "No %s %s, nothing to delete\n", entity, id)
	}
}

type WatchCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address (overrides metrics.addr)"`
}

func (c *WatchCmd) Run(rt *runtime) error {
	app, err := rt.container()
	if err != nil {
		return err
	}
	addr := c.MetricsAddr
	if addr == "" {
		addr = rt.cfg.Metrics.Addr
	}
	return app.Watch(rt.ctx, addr)
}

type HistoryCmd struct {
	Limit int64 `short:"n" default:"10" help:"Number of publications to show"`
}

func (c *HistoryCmd) Run(rt *runtime) error {
	if !rt.cfg.Redis.Enabled {
		return errors.New("history requires redis.enabled")
	}
	app, err := rt.container()
	if err != nil {
		return err
	}
	published := &task.SitePublishedTask{}
	msgs, err := app.Queue.Recent(rt.ctx, published.TaskType(), c.Limit)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		data, err := queue.TaskData(msg)
		if err != nil {
			return err
		}
		t, err := task.UnmarshalTask[task.SitePublishedTask](data)
		if err != nil {
			return err
		}
		fmt.Fprintf(rt.out, "%s  %s  %d pages", t.PublishedAt.Local().Format(time.DateTime), short(t.Revision), len(t.Pages))
		if len(t.Removed) > 0 {
			fmt.Fprintf(rt.out, "  removed %s", strings.Join(t.Removed, ", "))
		}
		fmt.Fprintln(rt.out)
	}
	return nil
}

func short(revision string) string {
	if len(revision) > 12 {
		return revision[:12]
	}
	return revision
}
