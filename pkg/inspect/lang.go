package inspect

import (
	"path/filepath"
	"strings"
)

func detectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".sh", ".bash":
		return "shell"
	case ".md":
		return "markdown"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return "text"
	}
}

func scanImports(lines []string, language string) []string {
	var imports []string
	inGoBlock := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch language {
		case "go":
			if line == "import (" {
				inGoBlock = true
				continue
			}
			if inGoBlock {
				if line == ")" {
					inGoBlock = false
					continue
				}
				if line != "" && !strings.HasPrefix(line, "//") {
					imports = append(imports, strings.Trim(line, `"`))
				}
				continue
			}
			if strings.HasPrefix(line, "import ") {
				imports = append(imports, strings.Trim(strings.TrimPrefix(line, "import "), `"`))
			}
		case "python":
			if strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ") {
				imports = append(imports, line)
			}
		case "javascript", "typescript":
			if strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "const ") && strings.Contains(line, "require(") {
				imports = append(imports, line)
			}
		case "rust":
			if strings.HasPrefix(line, "use ") {
				imports = append(imports, strings.TrimSuffix(strings.TrimPrefix(line, "use "), ";"))
			}
		}
	}
	return imports
}

func scanExports(lines []string, language string) []string {
	var exports []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch language {
		case "go":
			// Exported top-level declarations start with an upper-case name.
			if name, ok := goDeclName(raw); ok && name != "" && name[0] >= 'A' && name[0] <= 'Z' {
				exports = append(exports, name)
			}
		case "javascript", "typescript":
			if strings.HasPrefix(line, "export ") {
				exports = append(exports, line)
			}
		case "python":
			if strings.HasPrefix(line, "__all__") {
				exports = append(exports, line)
			}
		}
	}
	return exports
}

func scanSignatures(lines []string, language string) []string {
	var signatures []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch language {
		case "go":
			if strings.HasPrefix(line, "func ") {
				signatures = append(signatures, strings.TrimSuffix(line, " {"))
			}
		case "python":
			if strings.HasPrefix(line, "def ") || strings.HasPrefix(line, "async def ") {
				signatures = append(signatures, strings.TrimSuffix(line, ":"))
			}
		case "javascript", "typescript":
			if strings.HasPrefix(line, "function ") || strings.HasPrefix(line, "async function ") {
				signatures = append(signatures, strings.TrimSuffix(line, " {"))
			}
		case "rust":
			if strings.HasPrefix(line, "fn ") || strings.HasPrefix(line, "pub fn ") {
				signatures = append(signatures, strings.TrimSuffix(line, " {"))
			}
		}
	}
	return signatures
}

func scanStructure(lines []string, language string) (classes, functions []string, sections []Section) {
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := i + 1
		switch language {
		case "go":
			if strings.HasPrefix(line, "type ") && (strings.Contains(line, " struct") || strings.Contains(line, " interface")) {
				classes = append(classes, fieldAfter(line, "type "))
			} else if strings.HasPrefix(line, "func ") {
				functions = append(functions, goFuncName(line))
			}
		case "python":
			if strings.HasPrefix(line, "class ") {
				classes = append(classes, identPrefix(strings.TrimPrefix(line, "class ")))
			} else if strings.HasPrefix(line, "def ") {
				functions = append(functions, identPrefix(strings.TrimPrefix(line, "def ")))
			} else if strings.HasPrefix(line, "async def ") {
				functions = append(functions, identPrefix(strings.TrimPrefix(line, "async def ")))
			}
		case "javascript", "typescript":
			if strings.HasPrefix(line, "class ") || strings.HasPrefix(line, "export class ") {
				classes = append(classes, identPrefix(strings.TrimPrefix(strings.TrimPrefix(line, "export "), "class ")))
			} else if strings.HasPrefix(line, "function ") || strings.HasPrefix(line, "export function ") {
				functions = append(functions, identPrefix(strings.TrimPrefix(strings.TrimPrefix(line, "export "), "function ")))
			}
		case "rust":
			if strings.HasPrefix(line, "struct ") || strings.HasPrefix(line, "pub struct ") || strings.HasPrefix(line, "enum ") || strings.HasPrefix(line, "pub enum ") {
				classes = append(classes, identPrefix(trimAnyPrefix(line, "pub ", "struct ", "enum ")))
			} else if strings.HasPrefix(line, "fn ") || strings.HasPrefix(line, "pub fn ") {
				functions = append(functions, identPrefix(trimAnyPrefix(line, "pub ", "fn ")))
			}
		case "markdown":
			if strings.HasPrefix(line, "#") {
				sections = append(sections, Section{Name: strings.TrimSpace(strings.TrimLeft(line, "#")), Line: lineNo})
			}
		}

		// Comment banners mark sections in any language.
		if strings.HasPrefix(line, "// ===") || strings.HasPrefix(line, "# ===") {
			name := strings.Trim(strings.TrimLeft(line, "/#= "), "= ")
			if name != "" {
				sections = append(sections, Section{Name: name, Line: lineNo})
			}
		}
	}
	return classes, functions, sections
}

func goDeclName(raw string) (string, bool) {
	line := strings.TrimSpace(raw)
	if line != raw && !strings.HasPrefix(raw, line) {
		return "", false // only top-level declarations
	}
	switch {
	case strings.HasPrefix(raw, "func "):
		return goFuncName(line), true
	case strings.HasPrefix(raw, "type "):
		return fieldAfter(line, "type "), true
	case strings.HasPrefix(raw, "var "):
		return fieldAfter(line, "var "), true
	case strings.HasPrefix(raw, "const "):
		return fieldAfter(line, "const "), true
	}
	return "", false
}

func goFuncName(line string) string {
	rest := strings.TrimPrefix(line, "func ")
	if strings.HasPrefix(rest, "(") {
		// Method: skip the receiver.
		if idx := strings.Index(rest, ")"); idx >= 0 {
			rest = strings.TrimSpace(rest[idx+1:])
		}
	}
	return identPrefix(rest)
}

func fieldAfter(line, prefix string) string {
	return identPrefix(strings.TrimPrefix(line, prefix))
}

// identPrefix returns the leading identifier of s.
func identPrefix(s string) string {
	for i, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return s[:i]
		}
	}
	return s
}

func trimAnyPrefix(s string, prefixes ...string) string {
	for _, p := range prefixes {
		s = strings.TrimPrefix(s, p)
	}
	return s
}
