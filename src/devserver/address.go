package devserver

import (
	"net"
	"os/exec"
	"runtime"
)

// Addresses returns the non-loopback IPv4 addresses of this machine.
func Addresses() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			out = append(out, ip4.String())
		}
	}
	return out, nil
}

// LiveReloadHost picks the address a device on the network can reach,
// falling back to localhost.
func LiveReloadHost() string {
	addrs, err := Addresses()
	if err != nil || len(addrs) == 0 {
		return "localhost"
	}
	return addrs[0]
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
