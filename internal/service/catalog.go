package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/boxfs/internal/capability"
)

// Operation names, as reported in results, logs and metrics.
const (
	OpList            = "list"
	OpFind            = "find"
	OpOpen            = "open"
	OpCreateFile      = "create_file"
	OpCreateDirectory = "create_directory"
	OpDelete          = "delete"
	OpDeleteRecursive = "delete_recursive"
	OpRename          = "rename"
	OpSetPermissions  = "set_permissions"
	OpStore           = "store"
	OpCreateArchive   = "create_archive"
	OpExtractArchive  = "extract_archive"
	OpFetch           = "fetch"
)

// Category groups operations.
type Category string

const (
	CategoryFiles   Category = "files"
	CategoryArchive Category = "archive"
	CategoryNetwork Category = "network"
)

// Operation describes one operation the service exposes.
type Operation struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	ReadOnly    bool     `json:"read_only"`

	// available reports whether a profile can run the operation at all.
	available func(capability.Profile) bool
}

// Available reports whether the operation can run under profile.
func (o Operation) Available(profile capability.Profile) bool {
	return o.available == nil || o.available(profile)
}

// Catalog holds the operations a service exposes.
type Catalog struct {
	ops sync.Map
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Register adds an operation.
func (c *Catalog) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}
	if _, loaded := c.ops.LoadOrStore(op.Name, op); loaded {
		return fmt.Errorf("operation %q already registered", op.Name)
	}
	return nil
}

// Lookup retrieves an operation by name.
func (c *Catalog) Lookup(name string) (Operation, bool) {
	val, ok := c.ops.Load(name)
	if !ok {
		return Operation{}, false
	}
	return val.(Operation), true
}

// List returns the registered operations sorted by name, optionally limited to category.
func (c *Catalog) List(category *Category) []Operation {
	var ops []Operation
	c.ops.Range(func(_, value interface{}) bool {
		op := value.(Operation)
		if category == nil || op.Category == *category {
			ops = append(ops, op)
		}
		return true
	})
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name < ops[j].Name
	})
	return ops
}

// Stats summarizes the catalog for a profile.
type Stats struct {
	Total      int              `json:"total"`
	Available  int              `json:"available"`
	ByCategory map[Category]int `json:"by_category"`
}

// Stats counts the registered operations and those available under profile.
func (c *Catalog) Stats(profile capability.Profile) Stats {
	stats := Stats{ByCategory: make(map[Category]int)}

	c.ops.Range(func(_, value interface{}) bool {
		op := value.(Operation)
		stats.Total++
		if op.Available(profile) {
			stats.Available++
		}
		stats.ByCategory[op.Category]++
		return true
	})
	return stats
}

func canExtract(p capability.Profile) bool {
	return p.NativeArchive || p.ShellExec
}

func canFetch(p capability.Profile) bool {
	return p.OutboundHTTP
}

func registerOperations(c *Catalog) error {
	ops := []Operation{
		{Name: OpList, Category: CategoryFiles, ReadOnly: true, Description: "List the entries of a directory"},
		{Name: OpFind, Category: CategoryFiles, ReadOnly: true, Description: "Find entries matching a glob pattern"},
		{Name: OpOpen, Category: CategoryFiles, ReadOnly: true, Description: "Open a regular file for reading"},
		{Name: OpCreateFile, Category: CategoryFiles, Description: "Create or truncate an empty file"},
		{Name: OpCreateDirectory, Category: CategoryFiles, Description: "Create a directory"},
		{Name: OpDelete, Category: CategoryFiles, Description: "Delete a file, link or empty directory"},
		{Name: OpDeleteRecursive, Category: CategoryFiles, Description: "Delete a directory tree"},
		{Name: OpRename, Category: CategoryFiles, Description: "Rename or move an entry"},
		{Name: OpSetPermissions, Category: CategoryFiles, Description: "Change permission bits"},
		{Name: OpStore, Category: CategoryFiles, Description: "Write uploaded content atomically"},
		{Name: OpCreateArchive, Category: CategoryArchive, Description: "Pack files into an archive"},
		{Name: OpExtractArchive, Category: CategoryArchive, Description: "Unpack an archive", available: canExtract},
		{Name: OpFetch, Category: CategoryNetwork, Description: "Download a URL into the root", available: canFetch},
	}
	for _, op := range ops {
		if err := c.Register(op); err != nil {
			return err
		}
	}
	return nil
}
