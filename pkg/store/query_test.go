package store

import "testing"

func TestParsePackageQuery(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantName    string
		wantVersion string
	}{
		{"json style", `"lodash": "^4.17.21"`, "lodash", "4.17.21"},
		{"pip style", "requests==2.31.0", "requests", "2.31.0"},
		{"single equals", "serilog=3.1.1", "serilog", "3.1.1"},
		{"at style", "left-pad@1.3.0", "left-pad", "1.3.0"},
		{"colon split", "Newtonsoft.Json: 13.0.3", "Newtonsoft.Json", "13.0.3"},
		{"caret stripped", `vue: ^3.4.0`, "vue", "3.4.0"},
		{"scoped npm name", "@types/node@20.11.5", "@types/node", "20.11.5"},
		{"bare name", "requests", "", ""},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, version := ParsePackageQuery(tt.query)
			if name != tt.wantName || version != tt.wantVersion {
				t.Errorf("ParsePackageQuery(%q) = (%q, %q), want (%q, %q)",
					tt.query, name, version, tt.wantName, tt.wantVersion)
			}
		})
	}
}

// The pattern list is order-sensitive: "==" must win over "=" so pip
// queries don't split at the first equals sign.
func TestParsePackageQueryPatternOrder(t *testing.T) {
	name, version := ParsePackageQuery("flask==3.0.2")
	if name != "flask" || version != "3.0.2" {
		t.Fatalf("got (%q, %q), the double-equals pattern must match before single-equals", name, version)
	}
}
