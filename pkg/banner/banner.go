package banner

import "fmt"

const banner = `
██████╗ ███████╗███╗   ██╗██████╗ ███████╗██████╗  ██████╗  █████╗ ████████╗███████╗
██╔══██╗██╔════╝████╗  ██║██╔══██╗██╔════╝██╔══██╗██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝
██████╔╝█████╗  ██╔██╗ ██║██║  ██║█████╗  ██████╔╝██║  ███╗███████║   ██║   █████╗
██╔══██╗██╔══╝  ██║╚██╗██║██║  ██║██╔══╝  ██╔══██╗██║   ██║██╔══██║   ██║   ██╔══╝
██║  ██║███████╗██║ ╚████║██████╔╝███████╗██║  ██║╚██████╔╝██║  ██║   ██║   ███████╗
╚═╝  ╚═╝╚══════╝╚═╝  ╚═══╝╚═════╝ ╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(addr, clientRoot, engine, trailingSlash, source, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:         %s (%s)\n", addr, engine)
	fmt.Printf("Client root:    %s\n", clientRoot)
	fmt.Printf("Trailing slash: %s\n", trailingSlash)
	if version != "" {
		fmt.Printf("Version:        %s\n", version)
	}
	if source != "" {
		fmt.Printf("Config source:  %s\n", source)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET /healthz  - liveness")
	fmt.Println("GET /readyz   - readiness (manifest loaded)")
	fmt.Println("GET /metrics  - prometheus metrics")
	fmt.Println("*             - site dispatch (static / middleware / SSR)")
}
