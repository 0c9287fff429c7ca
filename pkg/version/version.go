package version

// Version is the current kg version. It is a var so release builds can set it:
//
//	go build -ldflags "-X github.com/vanderheijden86/kgview/pkg/version.Version=v0.2.0" ./cmd/kg
var Version = "v0.1.0"
