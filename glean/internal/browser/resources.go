package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// cdpTypeNames maps singular CDP resource types to the plural spellings the
// config uses.
var cdpTypeNames = map[string]string{
	"image":      "images",
	"font":       "fonts",
	"media":      "media",
	"stylesheet": "stylesheets",
}

// blockList answers whether a CDP resource type was configured away.
type blockList map[string]bool

func newBlockList(types []string) blockList {
	bl := make(blockList, len(types))
	for _, t := range types {
		bl[strings.ToLower(t)] = true
	}
	return bl
}

func (bl blockList) blocks(resType string) bool {
	lower := strings.ToLower(resType)
	if name, ok := cdpTypeNames[lower]; ok {
		return bl[name]
	}
	return bl[lower]
}

// blockResources intercepts the page's requests and fails those whose
// resource type is on the list. Listing traversal only needs the DOM, so
// images, fonts, media, and stylesheets are safe to shed.
func blockResources(page *rod.Page, types []string) {
	bl := newBlockList(types)
	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if bl.blocks(string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}
