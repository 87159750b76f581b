/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iand675/http-client/url"
)

// PublicSuffixList provides the public suffix of a domain. For example:
//      - the public suffix of "example.com" is "com",
//      - the public suffix of "foo1.foo2.foo3.co.uk" is "co.uk", and
//      - the public suffix of "bar.pvt.k12.ma.us" is "pvt.k12.ma.us".
//
// A nil PublicSuffixList is equivalent to one that always returns "".
type PublicSuffixList interface {
	PublicSuffix(domain string) string
	String() string
}

// Options are the options for creating a new Jar.
type Options struct {
	PublicSuffixList PublicSuffixList
}

// cookieEntry is a Jar's storage cell: the RFC 6265 §5.3 fields plus the
// jar-management bookkeeping (creation/access time, insertion sequence for
// stable Cookies-method ordering). Its domainMatch/pathMatch/shouldSend/id
// methods live in cookie_entry.go.
type cookieEntry struct {
	Name       string
	Value      string
	Domain     string
	Path       string
	Secure     bool
	HttpOnly   bool
	Persistent bool
	HostOnly   bool
	Expires    time.Time
	Creation   time.Time
	LastAccess time.Time
	SeqNum     uint64
}

// Jar implements a cookie jar per RFC 6265, keyed per-eTLD+1 (or bare host,
// with no PublicSuffixList) the way net/http/cookiejar does. Grounded on
// utils.go's jarKey/canonicalHost/defaultPath helpers (already present in
// this package) and cookie_entry.go's domain/path matching.
type Jar struct {
	psList PublicSuffixList

	mu         sync.Mutex
	entries    map[string]map[string]cookieEntry
	nextSeqNum uint64
}

// SetCookies handles the receipt of the cookies in a reply for the given
// URL, storing or overwriting (per Equiv identity) each valid cookie.
func (j *Jar) SetCookies(u *url.URL, cookies []*Cookie) {
	if len(cookies) == 0 {
		return
	}
	host, err := canonicalHost(u.Host)
	if err != nil {
		return
	}
	key := jarKey(host, j.psList)

	j.mu.Lock()
	defer j.mu.Unlock()

	submap := j.entries[key]

	modified := false
	now := time.Now()
	defPath := defaultPath(u.Path)
	for _, c := range cookies {
		e, ok := j.newEntry(c, now, defPath, host)
		if !ok {
			continue
		}
		id := e.id()
		if submap == nil {
			submap = make(map[string]cookieEntry)
		}
		if old, ok := submap[id]; ok {
			e.Creation = old.Creation
			e.SeqNum = old.SeqNum
		} else {
			e.SeqNum = j.nextSeqNum
			j.nextSeqNum++
		}
		e.LastAccess = now
		submap[id] = e
		modified = true
	}

	if modified {
		if len(submap) == 0 {
			delete(j.entries, key)
			return
		}
		if j.entries == nil {
			j.entries = make(map[string]map[string]cookieEntry)
		}
		j.entries[key] = submap
	}
}

// Cookies returns the cookies to send in a request for u, per RFC 6265
// §5.4 (longest-path-first, then earliest-creation-first).
func (j *Jar) Cookies(u *url.URL) []*Cookie {
	return j.cookies(u, time.Now())
}

func (j *Jar) cookies(u *url.URL, now time.Time) []*Cookie {
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	host, err := canonicalHost(u.Host)
	if err != nil {
		return nil
	}
	key := jarKey(host, j.psList)

	j.mu.Lock()
	defer j.mu.Unlock()

	submap := j.entries[key]
	if submap == nil {
		return nil
	}

	https := u.Scheme == "https"
	path := u.Path
	if path == "" {
		path = "/"
	}

	var selected []cookieEntry
	for id, e := range submap {
		if !e.Expires.After(now) {
			delete(submap, id)
			continue
		}
		if !e.shouldSend(https, host, path) {
			continue
		}
		e.LastAccess = now
		submap[id] = e
		selected = append(selected, e)
	}
	if len(submap) == 0 {
		delete(j.entries, key)
	}

	sort.Slice(selected, func(i, k int) bool {
		if len(selected[i].Path) != len(selected[k].Path) {
			return len(selected[i].Path) > len(selected[k].Path)
		}
		return selected[i].Creation.Before(selected[k].Creation)
	})

	cookies := make([]*Cookie, len(selected))
	for i, e := range selected {
		cookies[i] = &Cookie{Name: e.Name, Value: e.Value}
	}
	return cookies
}

// newEntry builds a cookieEntry from a parsed Set-Cookie cookie, per RFC
// 6265 §5.3's domain/path defaulting and rejection rules. ok is false if the
// cookie must be silently dropped (e.g. a Domain attribute that isn't a
// suffix-match of the request host).
func (j *Jar) newEntry(c *Cookie, now time.Time, defPath, host string) (e cookieEntry, ok bool) {
	e.Name = c.Name
	e.Value = c.Value

	switch {
	case c.Path == "" || c.Path[0] != '/':
		e.Path = defPath
	default:
		e.Path = c.Path
	}

	if c.Domain == "" {
		e.Domain = host
		e.HostOnly = true
	} else {
		domain, dErr := canonicalHost(c.Domain)
		if dErr != nil {
			return e, false
		}
		domain = strings.TrimPrefix(domain, ".")
		if j.psList != nil {
			if ps := j.psList.PublicSuffix(domain); ps == domain {
				return e, false
			}
		}
		if !isDomainOrSubdomain(host, domain) && host != domain {
			return e, false
		}
		e.Domain = domain
		e.HostOnly = false
	}

	e.Secure = c.Secure
	e.HttpOnly = c.HttpOnly

	switch {
	case c.MaxAge < 0:
		e.Expires = now
		e.Persistent = false
		return e, true
	case c.MaxAge > 0:
		e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		e.Persistent = true
	case !c.Expires.IsZero():
		if !c.Expires.After(now) {
			e.Expires = now
			e.Persistent = false
			return e, true
		}
		e.Expires = c.Expires
		e.Persistent = true
	default:
		e.Expires = endOfTime
		e.Persistent = false
	}

	e.Creation = now
	e.LastAccess = now
	return e, true
}

var endOfTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// allEntries returns every cookieEntry the jar currently holds, for use by
// Merge.
func (j *Jar) allEntries() []cookieEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	var all []cookieEntry
	for _, submap := range j.entries {
		for _, e := range submap {
			all = append(all, e)
		}
	}
	return all
}

// Merge combines this jar with other into a new Jar (spec §4.7/C9): every
// stored cookie from both jars is considered, grouped by the RFC 6265 §5.3
// Equiv identity (name, case-folded domain, path), and for each group the
// entry with the latest CreationTime wins — ties broken by the longer path,
// then arbitrarily. Merge is commutative in its *outcome* (same winning set
// regardless of argument order) even though it is not implemented as a
// method you can call in either order without naming a receiver; j.Merge(j)
// is the identity.
func (j *Jar) Merge(other *Jar) *Jar {
	merged := &Jar{psList: j.psList, entries: make(map[string]map[string]cookieEntry)}
	if other != nil && other.psList != nil && merged.psList == nil {
		merged.psList = other.psList
	}

	all := j.allEntries()
	if other != nil {
		all = append(all, other.allEntries()...)
	}

	// Group by (Domain, id) so winners are picked within the same jarKey
	// bucket the Cookies/SetCookies lookup path uses.
	type slot struct {
		key, id string
	}
	winners := make(map[slot]cookieEntry)
	for _, e := range all {
		s := slot{key: jarKey(e.Domain, merged.psList), id: e.id()}
		cur, ok := winners[s]
		if !ok || isNewerEntry(e, cur) {
			winners[s] = e
		}
	}

	for s, e := range winners {
		submap := merged.entries[s.key]
		if submap == nil {
			submap = make(map[string]cookieEntry)
			merged.entries[s.key] = submap
		}
		e.SeqNum = merged.nextSeqNum
		merged.nextSeqNum++
		submap[s.id] = e
	}
	return merged
}

// isNewerEntry reports whether a should replace b as a Merge winner: later
// CreationTime wins; a tie breaks toward the longer (more specific) Path.
func isNewerEntry(a, b cookieEntry) bool {
	if !a.Creation.Equal(b.Creation) {
		return a.Creation.After(b.Creation)
	}
	return len(a.Path) > len(b.Path)
}
