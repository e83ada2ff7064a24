package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the hashed fields.
const (
	DomainSend   = "eigen/send/v1"
	DomainReply  = "eigen/reply/v1"
	DomainBundle = "eigen/bundle/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SendID computes the content-addressed ID of a traced send.
// Two sends differ whenever their run, position, target or arguments do.
func SendID(runToken string, seq int64, receiver, message string, args IRArray) (string, error) {
	if args == nil {
		args = IRArray{}
	}
	canonical, err := MarshalCanonical(IRObject{
		"run_token": IRString(runToken),
		"seq":       IRInt(seq),
		"receiver":  IRString(receiver),
		"message":   IRString(message),
		"args":      args,
	})
	if err != nil {
		return "", fmt.Errorf("SendID: %w", err)
	}
	return hashWithDomain(DomainSend, canonical), nil
}

// ReplyID computes the content-addressed ID of a reply, linked to its send.
func ReplyID(sendID, outcome string, result IRValue, seq int64) (string, error) {
	if result == nil {
		result = IRNull{}
	}
	canonical, err := MarshalCanonical(IRObject{
		"send_id": IRString(sendID),
		"outcome": IRString(outcome),
		"result":  result,
		"seq":     IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("ReplyID: %w", err)
	}
	return hashWithDomain(DomainReply, canonical), nil
}

// BundleHash identifies a compiled bundle. Declaration order of modules and
// classes matters; method table order does not.
func BundleHash(b *Bundle) (string, error) {
	modules := make(IRArray, len(b.Modules))
	for i, m := range b.Modules {
		modules[i] = IRObject{
			"name":    IRString(m.Name),
			"include": stringArray(m.Include),
			"methods": stringObject(m.Methods),
		}
	}
	classes := make(IRArray, len(b.Classes))
	for i, c := range b.Classes {
		classes[i] = IRObject{
			"name":          IRString(c.Name),
			"superclass":    IRString(c.Superclass),
			"include":       stringArray(c.Include),
			"extend":        stringArray(c.Extend),
			"methods":       stringObject(c.Methods),
			"class_methods": stringObject(c.ClassMethods),
		}
	}
	canonical, err := MarshalCanonical(IRObject{"modules": modules, "classes": classes})
	if err != nil {
		return "", fmt.Errorf("BundleHash: %w", err)
	}
	return hashWithDomain(DomainBundle, canonical), nil
}

func stringArray(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

func stringObject(m map[string]string) IRObject {
	obj := make(IRObject, len(m))
	for k, v := range m {
		obj[k] = IRString(v)
	}
	return obj
}

// MustSendID is like SendID but panics on error. Test use only.
func MustSendID(runToken string, seq int64, receiver, message string, args IRArray) string {
	id, err := SendID(runToken, seq, receiver, message, args)
	if err != nil {
		panic(err)
	}
	return id
}
