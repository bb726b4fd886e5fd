//go:build bench

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// BenchmarkViewCompile benchmarks Markdown view compilation with the base layout.
func BenchmarkViewCompile(b *testing.B) {
	compiler := NewViewCompiler(layoutMap{"base": "<body>{{.Content}}</body>"})
	ctx := context.Background()

	for _, size := range []int{1, 10, 50, 200} {
		src := []byte(generateView(size))
		b.Run(fmt.Sprintf("sections_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := compiler.Compile(ctx, src); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBuildStyles benchmarks style block replacement.
func BenchmarkBuildStyles(b *testing.B) {
	doc := "<head><!-- build:style basic --><!-- /build --></head><body>" +
		strings.Repeat("<p>row</p>", 500) + "</body>"
	styles := func(string) (string, error) { return strings.Repeat("td{padding:0}", 100), nil }
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := BuildStyles(ctx, doc, styles); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPlainText benchmarks text alternative generation.
func BenchmarkPlainText(b *testing.B) {
	doc := "<html><body>" + strings.Repeat(`<p>Hello <a href="https://example.com">there</a></p>`, 200) + "</body></html>"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = PlainText(doc)
	}
}

func generateView(sections int) string {
	var sb strings.Builder
	sb.WriteString("---\ntitle: Bench\n---\n")
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&sb, "## Section %d\n\nHello {{ .site.name }}, this is **paragraph** %d.\n\n", i, i)
		sb.WriteString("[!button|Open](https://example.com)\n\n")
		sb.WriteString("```go\nfmt.Println(\"hi\")\n```\n\n")
	}
	return sb.String()
}
