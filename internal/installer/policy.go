package installer

import (
	"fmt"
	"path"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/alexisbeaulieu97/modhost/internal/module/script"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	"github.com/alexisbeaulieu97/modhost/internal/validation"
)

// Default rule names.
const (
	RuleRawUploadAccess  = "raw-upload-access"
	RuleForeignNamespace = "foreign-namespace"
	RuleRawRequestBody   = "raw-request-body"
	RuleRawSQL           = "raw-sql"
)

// DefaultRuleSpecs returns the content rules every package is scanned
// against unless configured otherwise.
func DefaultRuleSpecs() []validation.RuleSpec {
	return []validation.RuleSpec{
		{Name: RuleRawUploadAccess, Pattern: `\$_FILES\b|\bmove_uploaded_file\s*\(|\brequest\.raw_files\b`},
		{Name: RuleForeignNamespace, Pattern: `(?m)^\s*namespace\s+(?:App|Illuminate|Symfony)\\|\bpackage\.loaded\b|\bsetfenv\s*\(`},
		{Name: RuleRawRequestBody, Pattern: `\$_(?:POST|GET|REQUEST)\b|php://input|\brequest\.raw_body\b`},
		{Name: RuleRawSQL, Pattern: `\bDB::(?:raw|statement|unprepared)\s*\(|\bdb\.(?:raw|exec)\s*\(`},
	}
}

// DefaultPublicExtensions are safe to serve from a module's public subtree.
func DefaultPublicExtensions() []string {
	return []string{
		"css", "js", "mjs", "map", "json", "html", "txt", "md",
		"png", "jpg", "jpeg", "gif", "svg", "webp", "ico",
		"woff", "woff2", "ttf", "otf", "eot",
	}
}

// DefaultPrivateExtensions are allowed in a module but never in its public
// subtree.
func DefaultPrivateExtensions() []string {
	return []string{
		"lua", "php", "sql", "lock", "env", "yaml", "yml", "toml", "ini",
		"db", "sqlite", "gitignore", "gitkeep",
	}
}

// Policy is the set of rules a candidate package is validated against.
type Policy struct {
	// SourceExtension is the extension of the <id>/<id>.<ext> entry file.
	SourceExtension string
	// PublicDir names the public assets subtree inside a module.
	PublicDir string
	// PublicEntryExtension is the extension of <publicDir>/<id>.<ext>.
	PublicEntryExtension string
	// VendorDir is exempt from the pattern scan and the extension policy.
	VendorDir         string
	ScanExtensions    []string
	PublicExtensions  []string
	PrivateExtensions []string
	Rules             []validation.Rule
	Limits            storage.Limits
	// ScanConcurrency bounds parallel file scans. Zero means 8.
	ScanConcurrency int
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	rules, err := validation.CompileRules(DefaultRuleSpecs())
	if err != nil {
		panic(fmt.Sprintf("installer: default rules do not compile: %v", err))
	}
	return Policy{
		SourceExtension:      script.Extension,
		PublicDir:            "public",
		PublicEntryExtension: "js",
		VendorDir:            "vendor",
		ScanExtensions:       []string{"lua", "php"},
		PublicExtensions:     DefaultPublicExtensions(),
		PrivateExtensions:    DefaultPrivateExtensions(),
		Rules:                rules,
		Limits:               storage.Limits{MaxEntries: 10000, MaxBytes: 256 << 20},
		ScanConcurrency:      8,
	}
}

type compiledPolicy struct {
	Policy
	scan    mapset.Set[string]
	public  mapset.Set[string]
	private mapset.Set[string]
	allowed mapset.Set[string]
}

func (p Policy) compile() (*compiledPolicy, error) {
	if p.SourceExtension == "" {
		return nil, fmt.Errorf("installer: source extension is required")
	}
	if p.PublicDir == "" || strings.ContainsAny(p.PublicDir, `/\`) {
		return nil, fmt.Errorf("installer: invalid public dir %q", p.PublicDir)
	}
	if p.VendorDir == "" || strings.ContainsAny(p.VendorDir, `/\`) {
		return nil, fmt.Errorf("installer: invalid vendor dir %q", p.VendorDir)
	}
	if p.ScanConcurrency <= 0 {
		p.ScanConcurrency = 8
	}
	p.SourceExtension = normalizeExtension(p.SourceExtension)
	p.PublicEntryExtension = normalizeExtension(p.PublicEntryExtension)

	c := &compiledPolicy{
		Policy:  p,
		scan:    extensionSet(p.ScanExtensions),
		public:  extensionSet(p.PublicExtensions),
		private: extensionSet(p.PrivateExtensions),
	}
	c.allowed = c.public.Union(c.private)
	return c, nil
}

func extensionSet(exts []string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, ext := range exts {
		if ext = normalizeExtension(ext); ext != "" {
			set.Add(ext)
		}
	}
	return set
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// extensionOf returns the lowercase extension of a slash path. A dotfile with
// no other dot, like ".env", yields its name.
func extensionOf(name string) string {
	base := path.Base(name)
	if strings.HasPrefix(base, ".") && strings.Count(base, ".") == 1 {
		return strings.ToLower(base[1:])
	}
	return normalizeExtension(path.Ext(base))
}

// under reports whether the slash path rel lies inside dir.
func under(rel, dir string) bool {
	return strings.HasPrefix(rel, dir+"/")
}
