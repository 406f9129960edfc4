package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LocalOnly rejects requests whose peer is not on this machine. Unix socket
// peers have no IP and are always allowed.
func LocalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLocalPeer(c.Request.RemoteAddr) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "local connections only",
			})
			return
		}
		c.Next()
	}
}

func isLocalPeer(remoteAddr string) bool {
	if remoteAddr == "" || remoteAddr == "@" {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
