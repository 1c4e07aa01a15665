package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scribehq/scribe"
)

// DefaultTemplate is used when the request names no template.
const DefaultTemplate = `# {{title}}

## Overview

Describe what the project does and why it exists.

## Installation

How to install and configure the project.

## Usage

Minimal examples that get a new user productive.

## Architecture

The main components and how they fit together.

## Contributing

How to build, test and submit changes.
`

// Interface compliance check.
var _ TemplateSource = (*DirTemplates)(nil)

// DirTemplates serves templates from files named "<id>.md" under a
// directory. An unknown id is a validation failure, not an internal one:
// the id came from the request.
type DirTemplates struct {
	dir string
}

// NewDirTemplates creates a DirTemplates rooted at dir.
func NewDirTemplates(dir string) *DirTemplates {
	return &DirTemplates{dir: dir}
}

// Template implements TemplateSource.
func (t *DirTemplates) Template(_ context.Context, id int) (string, error) {
	data, err := os.ReadFile(filepath.Join(t.dir, strconv.Itoa(id)+".md"))
	if os.IsNotExist(err) {
		return "", &scribe.SessionError{
			Kind:      scribe.KindValidation,
			Message:   fmt.Sprintf("unknown template %d", id),
			Timestamp: time.Now(),
		}
	}
	if err != nil {
		return "", fmt.Errorf("pipeline: read template %d: %w", id, err)
	}
	return string(data), nil
}
