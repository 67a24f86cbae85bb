package service

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// UnknownClientIP 是无法识别客户端地址时使用的占位 IP。
const UnknownClientIP = "0.0.0.0"

const visitorIDLength = 32

// ResolveClientIP 依次尝试 X-Forwarded-For 的第一个地址、X-Real-IP 与连接地址，均缺失时返回 0.0.0.0。
func ResolveClientIP(header http.Header, remoteAddr string) string {
	if forwarded := header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	addr := strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr != "" {
		return addr
	}

	return UnknownClientIP
}

// ComputeVisitorID 由 IP 与 UA 派生稳定的匿名访客 ID：sha256(ip|ua) 的十六进制前 32 位。
func ComputeVisitorID(ip, ua string) string {
	sum := sha256.Sum256([]byte(ip + "|" + ua))
	return hex.EncodeToString(sum[:])[:visitorIDLength]
}
