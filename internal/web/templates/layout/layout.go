// Package layout renders the page shell shared by all pages.
package layout

import "github.com/mcoot/guessgame/internal/model"

// FlashMessage is a one-shot notice carried across a redirect
type FlashMessage struct {
	Type    string // success, error, info
	Message string
}

// PageData holds data common to every page
type PageData struct {
	Title         string
	Authenticated bool
	Principal     model.Principal
	Flash         *FlashMessage
}

const siteName = "Number Guessing Game"

func (d PageData) pageTitle() string {
	if d.Title == "" {
		return siteName
	}
	return d.Title + " - " + siteName
}
