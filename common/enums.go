// Package common keeps enums shared between the conversion engine, platform
// clients and the sync state so none of them have to import each other.
package common

import (
	"strings"
)

// Kind of an embedded media file, drives which block type the block service
// gets and how the HTML service renders it.
// ENUM(image, video, audio, pdf, file)
type FileKind int

// Direction of a sync run.
// ENUM(forward, reverse)
type SyncDirection int

// extension lists are part of the conversion contract - platforms type-check
// uploads against the declared block kind
var kindByExt = map[string]FileKind{
	".png": FileKindImage, ".jpg": FileKindImage, ".jpeg": FileKindImage,
	".gif": FileKindImage, ".svg": FileKindImage, ".webp": FileKindImage, ".bmp": FileKindImage,
	".mp4": FileKindVideo, ".mov": FileKindVideo, ".avi": FileKindVideo,
	".webm": FileKindVideo, ".mkv": FileKindVideo,
	".mp3": FileKindAudio, ".wav": FileKindAudio, ".m4a": FileKindAudio, ".ogg": FileKindAudio,
	".pdf": FileKindPdf,
}

// FileKindFromExt infers media kind from a file extension (with or without
// the leading dot). Anything unrecognized is a generic file.
func FileKindFromExt(ext string) FileKind {
	ext = strings.ToLower(ext)
	if len(ext) > 0 && ext[0] != '.' {
		ext = "." + ext
	}
	if kind, ok := kindByExt[ext]; ok {
		return kind
	}
	return FileKindFile
}

// FileKindFromName infers media kind from a file name or path.
func FileKindFromName(name string) FileKind {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return FileKindFromExt(name[i:])
	}
	return FileKindFile
}
