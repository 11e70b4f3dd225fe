// Package rfc9211 implements the "Cache-Status" response header field.
package rfc9211

import (
	"fmt"
	"strings"
)

// Status is the outcome of the cache handling.
type Status string

const (
	StatusHit Status = "hit"
	StatusFwd Status = "fwd"
)

// FwdReason tells why the request was forwarded.
type FwdReason string

const (
	// The cache was configured to not handle this request.
	FwdReasonBypass FwdReason = "bypass"

	// The cache did not contain any responses that could be used to
	// satisfy this request.
	FwdReasonMiss FwdReason = "miss"
)

// CacheStatus is a single entry of the Cache-Status header.
type CacheStatus struct {
	// Name of the cache
	Cache     string
	Status    Status
	FwdReason FwdReason
	// Whether the response was stored by the cache
	Stored bool
	Detail string
}

func (cs *CacheStatus) Hit() {
	cs.Status = StatusHit
	cs.FwdReason = ""
}

func (cs *CacheStatus) Forward(reason FwdReason) {
	cs.Status = StatusFwd
	cs.FwdReason = reason
}

func (cs CacheStatus) String() string {
	parts := []string{cs.Cache}
	switch {
	case cs.Status == StatusFwd && cs.FwdReason != "":
		parts = append(parts, fmt.Sprintf("%s=%s", cs.Status, cs.FwdReason))
	case cs.Status != "":
		parts = append(parts, string(cs.Status))
	}
	if cs.Stored {
		parts = append(parts, "stored")
	}
	if cs.Detail != "" {
		parts = append(parts, "detail="+cs.Detail)
	}
	return strings.Join(parts, "; ")
}
