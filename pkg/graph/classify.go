package graph

import "strings"

// KindOfClient infers a client's kind from its name with case-insensitive
// substring rules.
func KindOfClient(name string) ClientKind {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "stereo_tool"):
		return KindProcessor
	case strings.Contains(n, "liquidsoap"), strings.Contains(n, "icecast"), strings.Contains(n, "darkice"):
		return KindStreamer
	case strings.Contains(n, "system"), strings.Contains(n, "alsa"):
		return KindHardwareSystem
	case strings.Contains(n, "rivendell"), strings.Contains(n, "vlc"), strings.Contains(n, "mpv"), strings.Contains(n, "mplayer"):
		return KindSoftware
	default:
		return KindUnknown
	}
}

// KindOfPort derives a port's kind hint from its local name. Longer
// substrings are tried before their prefixes so "input" never reads as
// "in" alone.
func KindOfPort(local string) PortKind {
	n := strings.ToLower(local)
	switch {
	case strings.Contains(n, "capture"):
		return PortCapture
	case strings.Contains(n, "playout"):
		return PortPlayout
	case strings.Contains(n, "record"):
		return PortRecord
	case strings.Contains(n, "input"):
		return PortInput
	case strings.Contains(n, "output"), strings.Contains(n, "out"):
		return PortOutput
	case strings.Contains(n, "in"):
		return PortInput
	default:
		return PortGeneric
	}
}

// IsSourceName reports whether a local port name indicates a source port:
// it contains capture, playout, or out, or ends in an L/R channel suffix.
func IsSourceName(local string) bool {
	n := strings.ToLower(local)
	if strings.Contains(n, "capture") || strings.Contains(n, "playout") || strings.Contains(n, "out") {
		return true
	}
	return strings.HasSuffix(local, "L") || strings.HasSuffix(local, "R")
}

// IsSinkName reports whether a local port name indicates a sink port: it
// contains record, input, or in.
func IsSinkName(local string) bool {
	n := strings.ToLower(local)
	return strings.Contains(n, "record") || strings.Contains(n, "input") || strings.Contains(n, "in")
}

// SplitQualified splits "{client}:{port_local}" at the first colon. The
// second return is empty when the name has no colon.
func SplitQualified(qualified string) (client, local string) {
	client, local, _ = strings.Cut(qualified, ":")
	return client, local
}
