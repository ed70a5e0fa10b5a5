package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10 // keeps a single input from dominating a run

// inlineSeeds sketch the template shapes the pipeline meets in practice:
// every tag kind, trim markers, filters, includes, and broken tails.
var inlineSeeds = []string{
	"",
	"hello world\n",
	`{"name": {{ user.name }}, "count": {{ items|length }}}`,
	"{% if user.active %}yes{% else %}no{% endif %}\n",
	"{% for item in items %}- {{ item }}\n{% endfor %}",
	"{# a comment #}plain text",
	"{%- if ok -%}\n  trimmed\n{%- endif -%}\n",
	"key: {{ value }}\nlist:\n{% for x in xs %}  - {{ x }}\n{% endfor %}",
	"<p>{{ user.name | upper }}</p>",
	`{% set greeting = "hi" %}{{ greeting }}`,
	`{% include "partial.weft" %}`,
	"{{ items | first | default(0) }}",
	"unterminated {{ tail",
	"{% if a %}{% if b %}deep{% endif %}{% endif %}",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range inlineSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds feeds every template under the repository testdata tree
// into the corpus, when such a tree exists.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".weft" {
			return nil
		}
		// #nosec G304 -- path comes from the repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
