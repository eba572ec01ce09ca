// Package project provides project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pcb-viafence/internal/config"
)

// FormatVersion is the project format written by New.
const FormatVersion = 1

// File represents a via fence project file (.vfproj). It binds a board
// snapshot to fence settings and an output location.
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Paths (relative to project file)
	BoardPath  string `json:"board"`
	ConfigPath string `json:"config,omitempty"`
	OutputPath string `json:"output,omitempty"`

	// User settings
	Settings Settings `json:"settings,omitempty"`
}

// Settings override the fence configuration for this project. Zero values
// leave the configuration unchanged.
type Settings struct {
	NetFilter string `json:"net_filter,omitempty"`
	ViaNet    string `json:"via_net,omitempty"`
	Layer     string `json:"layer,omitempty"`
	Rows      int    `json:"rows,omitempty"`
}

// Apply copies the non-zero settings into c.
func (s Settings) Apply(c *config.Config) {
	if s.NetFilter != "" {
		c.Selection.NetFilter = s.NetFilter
	}
	if s.ViaNet != "" {
		c.Via.Net = s.ViaNet
	}
	if s.Layer != "" {
		c.Selection.Layer = s.Layer
	}
	if s.Rows > 0 {
		c.Fence.Rows = s.Rows
	}
}

// New creates a new project file.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  FormatVersion,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// Load loads a project from a .vfproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	if proj.BoardPath == "" {
		return nil, fmt.Errorf("project %s: no board set", path)
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// relTo returns target relative to the project directory, or target itself
// if no relative path exists.
func relTo(projectPath, target string) string {
	rel, err := filepath.Rel(filepath.Dir(projectPath), target)
	if err != nil {
		return target
	}
	return rel
}

// resolve returns the absolute form of a project-relative path.
func resolve(projectPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(projectPath), p)
}

// SetBoard sets the board snapshot path (relative to project).
func (p *File) SetBoard(projectPath, boardPath string) {
	p.BoardPath = relTo(projectPath, boardPath)
	p.Modified = time.Now()
}

// SetConfig sets the configuration file path (relative to project).
func (p *File) SetConfig(projectPath, configPath string) {
	p.ConfigPath = relTo(projectPath, configPath)
	p.Modified = time.Now()
}

// GetBoardPath returns the absolute path to the board snapshot.
func (p *File) GetBoardPath(projectPath string) string {
	return resolve(projectPath, p.BoardPath)
}

// GetConfigPath returns the absolute path to the configuration file, or ""
// if the project uses the defaults.
func (p *File) GetConfigPath(projectPath string) string {
	return resolve(projectPath, p.ConfigPath)
}

// GetOutputPath returns the absolute path to the via output file.
func (p *File) GetOutputPath(projectPath string) string {
	if p.OutputPath == "" {
		// Default: project_name_vias.json
		base := projectPath[:len(projectPath)-len(filepath.Ext(projectPath))]
		return base + "_vias.json"
	}
	return resolve(projectPath, p.OutputPath)
}

// Config loads the project's configuration file (or the defaults) and
// applies the project settings on top.
func (p *File) Config(projectPath string) (config.Config, error) {
	c := config.Default()
	if path := p.GetConfigPath(projectPath); path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	p.Settings.Apply(&c)
	return c, nil
}
