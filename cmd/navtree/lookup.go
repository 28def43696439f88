package main

import (
	"encoding/json"

	"github.com/lthms/navtree/internal/hierarchy"
)

// LookupCmd shows where one class sits in the inheritance graph.
type LookupCmd struct {
	File    string `arg:"" name:"file" help:"Hierarchy index (- for stdin)."`
	Class   string `arg:"" name:"class" help:"Class name as listed in the index."`
	JSON    bool   `help:"Print JSON."`
	BaseURL string `name:"base-url" help:"Prefix for page links."`
}

// Run prints the class record.
func (cmd *LookupCmd) Run(env *Env) error {
	f, err := loadIndex(cmd.File, hierarchy.Options{})
	if err != nil {
		return err
	}

	base := cmd.BaseURL
	if base == "" {
		base = env.Config.Render.BaseURL
	}
	res, err := lookupClass(hierarchy.NewIndex(f), cmd.Class, base)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = res.WriteTo(env.Stdout)
	return err
}

// DiffCmd compares two indexes class by class.
type DiffCmd struct {
	Old string `arg:"" name:"old" help:"Earlier hierarchy index."`
	New string `arg:"" name:"new" help:"Later hierarchy index."`
}

// Run prints the changes and exits with status 1 when there are any.
func (cmd *DiffCmd) Run(env *Env) error {
	old, err := loadIndex(cmd.Old, hierarchy.Options{})
	if err != nil {
		return err
	}
	cur, err := loadIndex(cmd.New, hierarchy.Options{})
	if err != nil {
		return err
	}
	return writeChanges(env, hierarchy.Diff(hierarchy.NewIndex(old), hierarchy.NewIndex(cur)))
}

func writeChanges(env *Env, changes *hierarchy.Changes) error {
	if _, err := changes.WriteTo(env.Stdout); err != nil {
		return err
	}
	if !changes.Empty() {
		return exitCode(1)
	}
	return nil
}
