// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"fmt"
	"net/url"
	"time"
)

// DetailURL builds the canonical address for an article page:
// /article/{YYYYMMDD}/{id}/{slug}/{page}, with the publish date taken
// from timePublish. page 0 omits the page segment; a non-empty remain
// token is carried as the r query parameter.
func DetailURL(timePublish, id int64, slug string, page int, remain string) string {
	date := time.Unix(timePublish, 0).UTC().Format("20060102")
	u := fmt.Sprintf("/article/%s/%d/%s", date, id, url.PathEscape(slug))
	if page > 0 {
		u = fmt.Sprintf("%s/%d", u, page)
	}
	if remain != "" {
		u += "?r=" + url.QueryEscape(remain)
	}
	return u
}
