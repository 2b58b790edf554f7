package dashboard

import "strings"

// defaultChartAssetsHost is the go-echarts asset CDN. The page loads
// echarts.min.js from here once and every card chart reuses it.
const defaultChartAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ChartAssetsHost normalizes a configured assets host, falling back to the CDN.
func ChartAssetsHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return defaultChartAssetsHost
	}
	return ensureTrailingSlash(host)
}

func ensureTrailingSlash(value string) string {
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
