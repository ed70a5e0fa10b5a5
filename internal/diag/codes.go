package diag

import (
	"fmt"
)

type Code uint16

const (
	// UnknownCode is for findings without a better home.
	UnknownCode Code = 0

	// Tokenizer (1000-1999)
	LexUnclosedBlock     Code = 1001
	LexInvalidDelimiters Code = 1002

	// Parser (2000-2999)
	SynUnexpectedToken     Code = 2001
	SynUnclosedBlock       Code = 2002
	SynMalformedExpression Code = 2003
	SynStrayEnd            Code = 2004
	SynStrayElse           Code = 2005
	SynEmptyTag            Code = 2006
	SynUnknownSuppression  Code = 2007

	// Type checker (3000-3999)
	SemaUndefinedVariable Code = 3001
	SemaTypeMismatch      Code = 3002
	SemaInvalidOperation  Code = 3003
	SemaSchemaViolation   Code = 3004
	SemaUnknownFilter     Code = 3005
	SemaIncludeCycle      Code = 3006
	SemaUnresolvedInclude Code = 3007
	SemaTruthyCondition   Code = 3008
	SemaShadowedVariable  Code = 3009
	SemaUnusedVariable    Code = 3010

	// IO and schema loading (4000-4999)
	IOLoadFileError    Code = 4001
	SchemaInvalid      Code = 4002
	SchemaUnresolvedRef Code = 4003

	// Projection and delegated linting (5000-5999)
	ProjUnknownFormat Code = 5001
	DelegateTimeout   Code = 5002
	DelegateFailed    Code = 5003

	// Workspace configuration (6000-6999)
	ConfInvalid       Code = 6001
	ConfEngineVersion Code = 6002

	// Engine faults (9000-9999)
	InternalError Code = 9001
)

// codeNames are the stable canonical identifiers. External tools and
// suppression directives match on these, so renaming one is a breaking
// change.
var codeNames = map[Code]string{
	UnknownCode:            "UNKNOWN",
	LexUnclosedBlock:       "UNCLOSED_BLOCK",
	LexInvalidDelimiters:   "INVALID_DELIMITERS",
	SynUnexpectedToken:     "UNEXPECTED_TOKEN",
	SynUnclosedBlock:       "UNCLOSED_BLOCK",
	SynMalformedExpression: "MALFORMED_EXPRESSION",
	SynStrayEnd:            "STRAY_END",
	SynStrayElse:           "STRAY_ELSE",
	SynEmptyTag:            "EMPTY_TAG",
	SynUnknownSuppression:  "UNKNOWN_SUPPRESSION",
	SemaUndefinedVariable:  "UNDEFINED_VARIABLE",
	SemaTypeMismatch:       "TYPE_MISMATCH",
	SemaInvalidOperation:   "INVALID_OPERATION",
	SemaSchemaViolation:    "SCHEMA_VIOLATION",
	SemaUnknownFilter:      "UNKNOWN_FILTER",
	SemaIncludeCycle:       "INCLUDE_CYCLE",
	SemaUnresolvedInclude:  "UNRESOLVED_INCLUDE",
	SemaTruthyCondition:    "TRUTHY_CONDITION",
	SemaShadowedVariable:   "SHADOWED_VARIABLE",
	SemaUnusedVariable:     "UNUSED_VARIABLE",
	IOLoadFileError:        "IO_ERROR",
	SchemaInvalid:          "SCHEMA_INVALID",
	SchemaUnresolvedRef:    "SCHEMA_UNRESOLVED_REF",
	ProjUnknownFormat:      "UNKNOWN_FORMAT",
	DelegateTimeout:        "DELEGATE_TIMEOUT",
	DelegateFailed:         "DELEGATE_FAILED",
	ConfInvalid:            "CONFIG_INVALID",
	ConfEngineVersion:      "ENGINE_VERSION",
	InternalError:          "INTERNAL_ERROR",
}

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown finding",
	LexUnclosedBlock:       "Tag opened but never closed",
	LexInvalidDelimiters:   "Delimiter configuration is unusable",
	SynUnexpectedToken:     "Unexpected token",
	SynUnclosedBlock:       "Control block is missing its end tag",
	SynMalformedExpression: "Malformed expression",
	SynStrayEnd:            "End tag without an open block",
	SynStrayElse:           "Branch tag outside an if block",
	SynEmptyTag:            "Tag has no content",
	SynUnknownSuppression:  "Suppression directive names no known diagnostic",
	SemaUndefinedVariable:  "Variable is not defined by the schema or any binding",
	SemaTypeMismatch:       "Operand or argument type does not fit",
	SemaInvalidOperation:   "Operation is not valid for this type",
	SemaSchemaViolation:    "Value violates a schema constraint",
	SemaUnknownFilter:      "Filter is not registered",
	SemaIncludeCycle:       "Includes form a cycle",
	SemaUnresolvedInclude:  "Included template cannot be resolved",
	SemaTruthyCondition:    "Condition is not a boolean",
	SemaShadowedVariable:   "Binding shadows an outer one",
	SemaUnusedVariable:     "Binding is never used",
	IOLoadFileError:        "I/O load file error",
	SchemaInvalid:          "Schema document is invalid",
	SchemaUnresolvedRef:    "Schema reference does not resolve",
	ProjUnknownFormat:      "Host format could not be determined",
	DelegateTimeout:        "Delegated linter exceeded its time budget",
	DelegateFailed:         "Delegated linter failed",
	ConfInvalid:            "Workspace configuration is invalid",
	ConfEngineVersion:      "Engine version does not satisfy the workspace constraint",
	InternalError:          "Internal engine fault",
}

// ID returns the stable canonical name for the code. Distinct numeric codes
// may share a name when they describe the same user-facing condition found
// by different phases (UNCLOSED_BLOCK is reported by both the tokenizer and
// the parser).
func (c Code) ID() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("WEFT%04d", uint16(c))
}

// KnownID reports whether name is the canonical ID of at least one code.
// Suppression parsing uses it to flag typos.
func KnownID(name string) bool {
	for _, n := range codeNames {
		if n == name {
			return true
		}
	}
	return false
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
