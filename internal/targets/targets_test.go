package targets

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFromReader(t *testing.T) {
	input := strings.NewReader(`
# comment
example.com
https://secure.example.com

http://plain.example.com
`)
	got, err := FromReader(input)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http://example.com",
		"https://secure.example.com",
		"http://plain.example.com",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromReader = %v, want %v", got, want)
	}
}

func TestDedupeAssignsIndexes(t *testing.T) {
	urls := []string{"http://a", "http://b", "http://a", "http://c", "http://b"}
	got := Dedupe(urls)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, tg := range got {
		if tg.Index != i {
			t.Errorf("target %d has index %d", i, tg.Index)
		}
	}
	if got[0].URL != "http://a" || got[1].URL != "http://b" || got[2].URL != "http://c" {
		t.Errorf("first-seen order not preserved: %v", got)
	}
}

func TestExclude(t *testing.T) {
	urls := []string{"http://keep.com", "http://drop.internal", "http://also.internal"}
	kept, dropped, err := Exclude(urls, []string{`\.internal`})
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 2 || len(kept) != 1 || kept[0] != "http://keep.com" {
		t.Errorf("Exclude = %v (dropped %d)", kept, dropped)
	}

	if _, _, err := Exclude(urls, []string{"("}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestExpandCIDR(t *testing.T) {
	urls, err := ExpandCIDR("192.168.1.0/30", []int{80, 443})
	if err != nil {
		t.Fatal(err)
	}
	// /30 has two usable hosts, two ports each.
	want := []string{
		"http://192.168.1.1:80",
		"https://192.168.1.1:443",
		"http://192.168.1.2:80",
		"https://192.168.1.2:443",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("ExpandCIDR = %v, want %v", urls, want)
	}

	if _, err := ExpandCIDR("not-a-cidr", []int{80}); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestParsePorts(t *testing.T) {
	ports, err := ParsePorts("80, 443,8080")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ports, []int{80, 443, 8080}) {
		t.Errorf("ParsePorts = %v", ports)
	}
	if _, err := ParsePorts("eighty"); err == nil {
		t.Error("expected error for non-numeric port")
	}
	if _, err := ParsePorts(""); err == nil {
		t.Error("expected error for empty list")
	}
}

func TestFromNmapXML(t *testing.T) {
	xml := `<?xml version="1.0"?>
<nmaprun>
  <host>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="80"><state state="open"/><service name="http"/></port>
      <port protocol="tcp" portid="443"><state state="open"/><service name="http" tunnel="ssl"/></port>
      <port protocol="tcp" portid="22"><state state="open"/><service name="ssh"/></port>
      <port protocol="tcp" portid="8080"><state state="closed"/><service name="http"/></port>
    </ports>
  </host>
</nmaprun>`
	path := filepath.Join(t.TempDir(), "scan.xml")
	if err := os.WriteFile(path, []byte(xml), 0644); err != nil {
		t.Fatal(err)
	}

	urls, err := FromNmapXML(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"http://10.0.0.5:80", "https://10.0.0.5:443"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("FromNmapXML = %v, want %v", urls, want)
	}
}
