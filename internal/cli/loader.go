package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tablegrid/internal/compiler"
	"github.com/roach88/tablegrid/internal/table"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the table definitions loaded from a path.
type LoadResult struct {
	Specs     []table.Spec
	FileCount int // Number of CUE files found
}

// Find returns the table named name.
func (r *LoadResult) Find(name string) (table.Spec, bool) {
	for _, s := range r.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return table.Spec{}, false
}

// Names lists the loaded table names in declaration order.
func (r *LoadResult) Names() []string {
	names := make([]string, len(r.Specs))
	for i, s := range r.Specs {
		names[i] = s.Name
	}
	return names
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs compiles the table definitions under path, which is either a
// directory holding one CUE package or a single .cue file.
// If mode is LoadModeFailFast, returns on first compile error.
// If mode is LoadModeCollectAll, compiles every table and collects errors.
//
// A nil result means nothing could be compiled at all.
func LoadSpecs(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs path: %v", err)}}
	}

	var value cue.Value
	result := &LoadResult{}
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		result.FileCount = len(cueFiles)

		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
		}
		value = cuecontext.New().BuildInstance(inst)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}
		result.FileCount = 1
		value = cuecontext.New().CompileBytes(data, cue.Filename(path))
	}

	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	tablesVal := value.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoTables, Message: "no tables found in specs"}}
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating tables: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		spec, err := compiler.CompileTable(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "table."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Specs = append(result.Specs, *spec)
	}

	if len(result.Specs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoTables, Message: "no tables found in specs"})
	}
	return result, errs
}

// LoadSpec loads path and returns the table named name.
func LoadSpec(path, name string) (table.Spec, error) {
	result, errs := LoadSpecs(path, LoadModeFailFast)
	if len(errs) > 0 {
		return table.Spec{}, errs[0]
	}
	spec, ok := result.Find(name)
	if !ok {
		return table.Spec{}, &LoadError{
			Code:    ErrCodeUnknownTable,
			Message: fmt.Sprintf("table %q not found (have %s)", name, strings.Join(result.Names(), ", ")),
		}
	}
	if verrs := compiler.Validate(&spec); len(verrs) > 0 {
		return table.Spec{}, &LoadError{Code: verrs[0].Code, Message: verrs[0].Error()}
	}
	return spec, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants shared by all CLI commands. Table schema errors use
// the compiler's E1xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File or database write error
	ErrCodeNoTables     = "E008" // No table definitions
	ErrCodeUnknownTable = "E009" // Named table not defined
	ErrCodeBadRows      = "E010" // Row file unreadable
	ErrCodeTestFailed   = "E011" // One or more scenarios failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "columns":
		return compiler.ErrNoColumns
	case strings.HasSuffix(field, ".id"):
		return compiler.ErrColumnIDEmpty
	case strings.HasSuffix(field, ".width"):
		return compiler.ErrInvalidWidth
	case strings.HasSuffix(field, ".pinned"):
		return compiler.ErrInvalidPinSide
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
