package scanner

import (
	"strings"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

// authorTitleSeparator splits "<Author>-<Title>". Only the first one counts,
// so titles may contain dashes but authors may not.
const authorTitleSeparator = "-"

// ParseFilename derives title and author from a file name of the form
// "<Author>-<Title><ext>", where underscores stand for spaces.
// The extension match is case-sensitive.
func ParseFilename(fileName, ext string) (domain.BookInfo, error) {
	stem, ok := strings.CutSuffix(fileName, ext)
	if !ok || ext == "" {
		return domain.BookInfo{}, apperrors.MalformedNamef("%s: does not end in %q", fileName, ext)
	}

	author, title, ok := strings.Cut(stem, authorTitleSeparator)
	if !ok {
		return domain.BookInfo{}, apperrors.MalformedNamef("%s: no %q between author and title", fileName, authorTitleSeparator)
	}

	info, err := domain.NewBookInfo(underscoresToSpaces(title), underscoresToSpaces(author))
	if err != nil {
		return domain.BookInfo{}, apperrors.Wrapf(err, apperrors.CodeMalformedName, "%s", fileName)
	}
	return info, nil
}

// FormatFilename is the inverse of ParseFilename.
func FormatFilename(info domain.BookInfo, ext string) string {
	return info.FileName(ext)
}

func underscoresToSpaces(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
