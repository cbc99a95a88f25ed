package analyzer

import (
	"context"
	"regexp"

	"github.com/augurhq/augur/pkg/models"
)

// SecurityAnalyzer detects likely vulnerabilities with per-language regex
// rules: injection sinks, weak crypto, hardcoded credentials, and unsafe
// dynamic evaluation.
type SecurityAnalyzer struct {
	pythonPatterns []linePattern
	scriptPatterns []linePattern // javascript and typescript
}

// NewSecurityAnalyzer creates a security analyzer with the default rules.
func NewSecurityAnalyzer() *SecurityAnalyzer {
	return &SecurityAnalyzer{
		pythonPatterns: pythonSecurityPatterns(),
		scriptPatterns: scriptSecurityPatterns(),
	}
}

func (a *SecurityAnalyzer) Name() string              { return "security" }
func (a *SecurityAnalyzer) Category() models.Category { return models.CategorySecurity }

func (a *SecurityAnalyzer) Languages() []models.Language {
	return []models.Language{models.LangPython, models.LangJavaScript, models.LangTypeScript}
}

// Analyze scans each line of the file against the language's rule table.
func (a *SecurityAnalyzer) Analyze(_ context.Context, in *Input) ([]models.Issue, error) {
	patterns := a.scriptPatterns
	if in.File.Language == models.LangPython {
		patterns = a.pythonPatterns
	}
	return scanLinePatterns(in, models.CategorySecurity, patterns), nil
}

func pythonSecurityPatterns() []linePattern {
	return []linePattern{
		// SQL built from string interpolation or concatenation
		{regexp.MustCompile(`execute\s*\(\s*["'].*%.*["']`), "sql_injection", models.SeverityCritical, 0.8,
			"SQL query built with string formatting",
			"Use parameterized queries instead of string formatting"},
		{regexp.MustCompile(`execute\s*\(\s*.*\+.*\)`), "sql_injection", models.SeverityCritical, 0.7,
			"SQL query built with string concatenation",
			"Use parameterized queries instead of concatenation"},
		{regexp.MustCompile(`cursor\.execute\s*\(\s*f["']`), "sql_injection", models.SeverityCritical, 0.85,
			"SQL query built with an f-string",
			"Use parameterized queries instead of f-strings"},
		{regexp.MustCompile(`(?:query|sql)\s*=\s*["'].*%.*["']`), "sql_injection", models.SeverityHigh, 0.6,
			"SQL string assembled with formatting",
			"Use parameterized queries"},

		// Command injection
		{regexp.MustCompile(`os\.system\s*\(\s*.*\+`), "command_injection", models.SeverityCritical, 0.8,
			"Shell command built with concatenation",
			"Use subprocess with an argument list and shell=False"},
		{regexp.MustCompile(`subprocess\.(call|run|Popen)\s*\(\s*.*\+`), "command_injection", models.SeverityCritical, 0.75,
			"Subprocess command built with concatenation",
			"Pass arguments as a list instead of a concatenated string"},
		{regexp.MustCompile(`\b(eval|exec)\s*\(\s*.*input`), "command_injection", models.SeverityCritical, 0.9,
			"Dynamic evaluation of user input",
			"Never eval or exec untrusted input"},

		// Path traversal
		{regexp.MustCompile(`open\s*\(\s*.*\+.*["']\.\./`), "path_traversal", models.SeverityHigh, 0.7,
			"File path built with traversal sequences",
			"Normalize and validate paths before opening files"},

		// Weak crypto
		{regexp.MustCompile(`hashlib\.md5\s*\(`), "weak_crypto", models.SeverityMedium, 0.9,
			"MD5 is cryptographically broken",
			"Use hashlib.sha256 or stronger"},
		{regexp.MustCompile(`hashlib\.sha1\s*\(`), "weak_crypto", models.SeverityMedium, 0.9,
			"SHA-1 is cryptographically weak",
			"Use hashlib.sha256 or stronger"},
		{regexp.MustCompile(`random\.(random|randint)\s*\(`), "insecure_random", models.SeverityLow, 0.5,
			"random module is not suitable for security purposes",
			"Use the secrets module for tokens and keys"},

		// Unsafe deserialization
		{regexp.MustCompile(`\b(pickle|cPickle|marshal)\.loads?\s*\(`), "unsafe_deserialization", models.SeverityHigh, 0.8,
			"Deserialization of untrusted data",
			"Avoid pickle for untrusted input; prefer JSON"},

		// Hardcoded secrets
		{regexp.MustCompile(`(?i)password\s*=\s*["'][^"']{8,}["']`), "hardcoded_secret", models.SeverityHigh, 0.6,
			"Possible hardcoded password",
			"Load secrets from the environment or a secret manager"},
		{regexp.MustCompile(`(?i)api[_-]?key\s*=\s*["'][^"']{20,}["']`), "hardcoded_secret", models.SeverityHigh, 0.7,
			"Possible hardcoded API key",
			"Load secrets from the environment or a secret manager"},
		{regexp.MustCompile(`(?i)secret\s*=\s*["'][^"']{16,}["']`), "hardcoded_secret", models.SeverityHigh, 0.6,
			"Possible hardcoded secret",
			"Load secrets from the environment or a secret manager"},
		{regexp.MustCompile(`(?i)token\s*=\s*["'][^"']{20,}["']`), "hardcoded_secret", models.SeverityHigh, 0.6,
			"Possible hardcoded token",
			"Load secrets from the environment or a secret manager"},
	}
}

func scriptSecurityPatterns() []linePattern {
	return []linePattern{
		// SQL injection
		{regexp.MustCompile("query\\s*\\(?\\s*[\"'`].*\\$\\{.*\\}.*[\"'`]"), "sql_injection", models.SeverityCritical, 0.8,
			"SQL query built with a template literal",
			"Use parameterized queries instead of template literals"},
		{regexp.MustCompile("execute\\s*\\(\\s*[\"'`].*\\+.*[\"'`]"), "sql_injection", models.SeverityCritical, 0.7,
			"SQL query built with string concatenation",
			"Use parameterized queries instead of concatenation"},
		{regexp.MustCompile(`\bsql\s*=\s*.*\+`), "sql_injection", models.SeverityHigh, 0.55,
			"SQL string assembled with concatenation",
			"Use parameterized queries"},

		// XSS
		{regexp.MustCompile(`innerHTML\s*=\s*.*\+`), "xss", models.SeverityHigh, 0.7,
			"innerHTML assigned concatenated content",
			"Use textContent or sanitize the HTML first"},
		{regexp.MustCompile(`document\.write\s*\(\s*.*\+`), "xss", models.SeverityHigh, 0.75,
			"document.write with dynamic content",
			"Avoid document.write; build DOM nodes instead"},
		{regexp.MustCompile(`dangerouslySetInnerHTML`), "xss", models.SeverityMedium, 0.6,
			"React dangerouslySetInnerHTML usage",
			"Sanitize the payload before rendering it as HTML"},

		// Command injection and dynamic evaluation
		{regexp.MustCompile(`child_process\.exec\s*\(\s*.*\+`), "command_injection", models.SeverityCritical, 0.8,
			"Shell command built with concatenation",
			"Use execFile with an argument array"},
		{regexp.MustCompile(`\beval\s*\(`), "unsafe_eval", models.SeverityHigh, 0.7,
			"eval usage",
			"Avoid eval; use JSON.parse or explicit dispatch"},
		{regexp.MustCompile(`new\s+Function\s*\(`), "unsafe_eval", models.SeverityHigh, 0.7,
			"Function constructor usage",
			"Avoid dynamic code generation"},
		{regexp.MustCompile(`set(Timeout|Interval)\s*\(\s*["']`), "unsafe_eval", models.SeverityMedium, 0.7,
			"Timer with a string argument is implicit eval",
			"Pass a function to setTimeout/setInterval"},

		// Weak crypto
		{regexp.MustCompile(`crypto\.createHash\s*\(\s*["'](md5|sha1)["']`), "weak_crypto", models.SeverityMedium, 0.9,
			"Weak hash algorithm",
			"Use sha256 or stronger"},
		{regexp.MustCompile(`Math\.random\s*\(`), "insecure_random", models.SeverityLow, 0.4,
			"Math.random is not suitable for security purposes",
			"Use crypto.randomBytes or crypto.getRandomValues"},

		// Hardcoded secrets
		{regexp.MustCompile("(?i)password\\s*[:=]\\s*[\"'`][^\"'`]{8,}[\"'`]"), "hardcoded_secret", models.SeverityHigh, 0.6,
			"Possible hardcoded password",
			"Load secrets from the environment or a secret manager"},
		{regexp.MustCompile("(?i)apiKey\\s*[:=]\\s*[\"'`][^\"'`]{20,}[\"'`]"), "hardcoded_secret", models.SeverityHigh, 0.7,
			"Possible hardcoded API key",
			"Load secrets from the environment or a secret manager"},
		{regexp.MustCompile("(?i)secret\\s*[:=]\\s*[\"'`][^\"'`]{16,}[\"'`]"), "hardcoded_secret", models.SeverityHigh, 0.6,
			"Possible hardcoded secret",
			"Load secrets from the environment or a secret manager"},
		{regexp.MustCompile("(?i)token\\s*[:=]\\s*[\"'`][^\"'`]{20,}[\"'`]"), "hardcoded_secret", models.SeverityHigh, 0.6,
			"Possible hardcoded token",
			"Load secrets from the environment or a secret manager"},
	}
}
