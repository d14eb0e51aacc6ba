package cgi

var Redact = redact
