package targets

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

type nmapRun struct {
	Hosts []nmapHost `xml:"host"`
}

type nmapHost struct {
	Address nmapAddress `xml:"address"`
	Ports   []nmapPort  `xml:"ports>port"`
}

type nmapAddress struct {
	Addr string `xml:"addr,attr"`
}

type nmapPort struct {
	PortID  string      `xml:"portid,attr"`
	State   nmapState   `xml:"state"`
	Service nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name   string `xml:"name,attr"`
	Tunnel string `xml:"tunnel,attr"`
}

// FromNmapXML parses Nmap XML output and extracts URLs for open HTTP(S)
// services.
func FromNmapXML(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing nmap xml %s: %w", filename, err)
	}

	var urls []string
	for _, host := range run.Hosts {
		if host.Address.Addr == "" {
			continue
		}
		for _, port := range host.Ports {
			if port.State.State != "open" {
				continue
			}
			name := port.Service.Name
			if !strings.Contains(name, "http") && !strings.Contains(name, "https") && !strings.Contains(name, "ssl") {
				continue
			}
			scheme := "http"
			if strings.Contains(name, "ssl") || strings.Contains(name, "https") || port.Service.Tunnel == "ssl" {
				scheme = "https"
			}
			urls = append(urls, fmt.Sprintf("%s://%s:%s", scheme, host.Address.Addr, port.PortID))
		}
	}
	return urls, nil
}
