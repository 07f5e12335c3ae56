package structured

import (
	"github.com/panbanda/augur/pkg/parser"
)

// declTable describes how declarations and control flow appear in one grammar.
type declTable struct {
	functions map[string]bool
	classes   map[string]bool
	branches  map[string]bool
	resources map[string]bool
	booleans  map[string]bool // nodes whose operator may be && / || / and / or
}

// makeSet converts a slice to a map for O(1) lookups.
func makeSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

var (
	commentTypes = makeSet("comment", "line_comment", "block_comment", "doc_comment")

	identifierTypes = makeSet(
		"identifier",
		"field_identifier",
		"property_identifier",
		"shorthand_property_identifier",
		"shorthand_property_identifier_pattern",
		"variable_name",
		"instance_variable",
	)

	literalTypes = makeSet(
		"string", "string_literal", "interpreted_string_literal", "raw_string_literal",
		"template_string", "encapsed_string", "char_literal", "character_literal",
		"rune_literal", "verbatim_string_literal", "heredoc_body", "string_fragment",
		"number", "integer", "float", "int_literal", "float_literal", "imaginary_literal",
		"integer_literal", "real_literal", "number_literal", "decimal_integer_literal",
		"hex_integer_literal", "octal_integer_literal", "binary_integer_literal",
		"decimal_floating_point_literal",
		"true", "false", "none", "null", "nil", "null_literal", "boolean_literal",
		"simple_symbol", "regex",
	)

	// memberFields hold names resolved against an object, which are kept verbatim.
	memberFields = makeSet("attribute", "property", "field")

	booleanOperators = makeSet("&&", "||", "and", "or")
)

// tableFor returns the declaration table for lang, or nil when none exists.
func tableFor(lang parser.Language) *declTable {
	t, ok := tables[lang]
	if !ok {
		return nil
	}
	return t
}

var jsTable = &declTable{
	functions: makeSet("function_declaration", "generator_function_declaration", "function",
		"function_expression", "generator_function", "arrow_function", "method_definition"),
	classes: makeSet("class_declaration", "class", "abstract_class_declaration",
		"interface_declaration"),
	branches: makeSet("if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause"),
	resources: makeSet(),
	booleans:  makeSet("binary_expression"),
}

var cTable = &declTable{
	functions: makeSet("function_definition"),
	classes:   makeSet("struct_specifier", "class_specifier", "union_specifier"),
	branches: makeSet("if_statement", "for_statement", "for_range_loop", "while_statement",
		"do_statement", "case_statement", "catch_clause"),
	resources: makeSet(),
	booleans:  makeSet("binary_expression"),
}

var tables = map[parser.Language]*declTable{
	parser.LangGo: {
		functions: makeSet("function_declaration", "method_declaration"),
		classes:   makeSet("type_spec"),
		branches: makeSet("if_statement", "for_statement", "expression_case", "type_case",
			"communication_case"),
		resources: makeSet(),
		booleans:  makeSet("binary_expression"),
	},
	parser.LangRust: {
		functions: makeSet("function_item"),
		classes:   makeSet("struct_item", "enum_item", "trait_item", "impl_item"),
		branches: makeSet("if_expression", "if_let_expression", "while_expression",
			"while_let_expression", "for_expression", "match_arm"),
		resources: makeSet(),
		booleans:  makeSet("binary_expression"),
	},
	parser.LangPython: {
		functions: makeSet("function_definition"),
		classes:   makeSet("class_definition"),
		branches: makeSet("if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "case_clause"),
		resources: makeSet("with_statement"),
		booleans:  makeSet("boolean_operator"),
	},
	parser.LangJavaScript: jsTable,
	parser.LangTypeScript: jsTable,
	parser.LangTSX:        jsTable,
	parser.LangJava: {
		functions: makeSet("method_declaration", "constructor_declaration"),
		classes: makeSet("class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration"),
		branches: makeSet("if_statement", "for_statement", "enhanced_for_statement",
			"while_statement", "do_statement", "switch_label", "catch_clause"),
		resources: makeSet("try_with_resources_statement"),
		booleans:  makeSet("binary_expression"),
	},
	parser.LangC:   cTable,
	parser.LangCPP: cTable,
	parser.LangCSharp: {
		functions: makeSet("method_declaration", "constructor_declaration", "local_function_statement"),
		classes: makeSet("class_declaration", "interface_declaration", "struct_declaration",
			"record_declaration"),
		branches: makeSet("if_statement", "for_statement", "foreach_statement", "while_statement",
			"do_statement", "case_switch_label", "case_pattern_switch_label",
			"switch_expression_arm", "catch_clause"),
		resources: makeSet("using_statement"),
		booleans:  makeSet("binary_expression"),
	},
	parser.LangRuby: {
		functions: makeSet("method", "singleton_method"),
		classes:   makeSet("class", "module"),
		branches: makeSet("if", "elsif", "unless", "while", "until", "for", "when", "rescue",
			"if_modifier", "unless_modifier", "while_modifier", "until_modifier"),
		resources: makeSet(),
		booleans:  makeSet("binary"),
	},
	parser.LangPHP: {
		functions: makeSet("function_definition", "method_declaration"),
		classes:   makeSet("class_declaration", "interface_declaration", "trait_declaration"),
		branches: makeSet("if_statement", "else_if_clause", "elseif_clause", "for_statement",
			"foreach_statement", "while_statement", "do_statement", "case_statement",
			"catch_clause"),
		resources: makeSet(),
		booleans:  makeSet("binary_expression"),
	},
	parser.LangBash: {
		functions: makeSet("function_definition"),
		classes:   makeSet(),
		branches: makeSet("if_statement", "elif_clause", "for_statement", "c_style_for_statement",
			"while_statement", "case_item"),
		resources: makeSet(),
		booleans:  makeSet("list"),
	},
}
