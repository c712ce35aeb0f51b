package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwebster45206/campaign-engine/pkg/creation"
	"github.com/jwebster45206/campaign-engine/pkg/library"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <documents-dir> [token-budget]\n", os.Args[0])
		os.Exit(1)
	}

	dir := os.Args[1]
	budget := 0
	if len(os.Args) > 2 {
		var err error
		budget, err = strconv.Atoi(os.Args[2])
		if err != nil || budget <= 0 {
			fmt.Fprintf(os.Stderr, "token-budget must be a positive integer: %s\n", os.Args[2])
			os.Exit(1)
		}
	}

	validator := &LibraryValidator{}
	if err := validator.validateDir(dir, budget); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Document library is valid!")
}

type LibraryValidator struct {
	errors []string
	docs   []library.Document
}

func (v *LibraryValidator) validateDir(dir string, budget int) error {
	fmt.Printf("Validating %s...\n", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	v.errors = nil
	v.docs = nil

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		v.validateFile(filepath.Join(dir, entry.Name()))
	}

	if len(v.docs) == 0 {
		return fmt.Errorf("no document files found in %s", dir)
	}

	v.validateLibrary(budget)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *LibraryValidator) validateFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		v.addError(fmt.Sprintf("failed to read %s: %v", path, err))
		return
	}

	if !json.Valid(data) {
		v.addError(fmt.Sprintf("%s contains invalid JSON", path))
		return
	}

	var doc library.Document
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&doc); err != nil {
		v.addError(fmt.Sprintf("%s failed strict JSON unmarshaling: %v", path, err))
		return
	}

	name := filepath.Base(path)
	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(name, ".json")
	}

	v.validateDocument(&doc, name)
	v.docs = append(v.docs, doc)
}

func (v *LibraryValidator) validateDocument(doc *library.Document, name string) {
	if !isValidID(doc.ID) {
		v.addError(fmt.Sprintf("%s: document ID '%s' should be lowercase snake_case", name, doc.ID))
	}

	if doc.Tier < library.TierFoundational || doc.Tier > library.TierReference {
		v.addError(fmt.Sprintf("%s: tier must be 1-4, got %d", name, doc.Tier))
	}

	switch doc.Mode {
	case "", library.LoadAlways:
		// default
	case library.LoadConditional:
		if doc.RequiresSystem == "" {
			v.addError(fmt.Sprintf("%s: conditional documents must set requires_system", name))
		}
	case library.LoadContext:
		for _, stage := range doc.Stages {
			if _, err := creation.ParseStage(string(stage)); err != nil {
				v.addError(fmt.Sprintf("%s: unknown creation stage '%s'", name, stage))
			}
		}
	default:
		v.addError(fmt.Sprintf("%s: unknown load mode '%s'", name, doc.Mode))
	}

	if doc.Tokens <= 0 {
		v.addError(fmt.Sprintf("%s: tokens must be a positive cost estimate, got %d", name, doc.Tokens))
	}

	if doc.Body == "" {
		v.addError(fmt.Sprintf("%s: body cannot be empty", name))
	}
}

// validateLibrary checks cross-document constraints: at least one always-on
// tier-1 document, and tier-1 feasibility under the budget if one was given.
func (v *LibraryValidator) validateLibrary(budget int) {
	var tier1Cost int
	tier1Always := false

	for _, doc := range v.docs {
		if doc.Tier != library.TierFoundational {
			continue
		}
		tier1Cost += doc.Tokens
		if doc.Mode == "" || doc.Mode == library.LoadAlways {
			tier1Always = true
		}
	}

	if !tier1Always {
		v.addError("library has no always-on tier-1 document; every turn needs foundational instructions")
	}

	if budget > 0 && tier1Cost > budget {
		v.addError(fmt.Sprintf("tier-1 documents cost %d tokens, exceeding the budget of %d; every plan would fail", tier1Cost, budget))
	}
}

func (v *LibraryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
