package packaging

import (
	"fmt"

	"cameio-cli/src/prompt"
	"cameio-cli/src/service"
)

// SigningField is one signing value the build needs.
type SigningField struct {
	Name     string
	Label    string
	Hidden   bool
	Required bool
	IsFile   bool
}

var signingFields = map[string]SigningField{
	"android-keystore-file":     {Label: "Android Keystore File (.keystore):", Required: true, IsFile: true},
	"android-keystore-alias":    {Label: "Keystore Alias:", Required: true},
	"android-keystore-password": {Label: "Keystore Password:", Hidden: true, Required: true},
	"android-key-password":      {Label: "Key Password (optional):", Hidden: true},
	"ios-certificate-file":      {Label: "iOS Certificate File (.p12):", Required: true, IsFile: true},
	"ios-certificate-password":  {Label: "Certificate Password:", Hidden: true, Required: true},
	"ios-profile-file":          {Label: "iOS Mobile Provisioning Profile (.mobileprovision):", Required: true, IsFile: true},
}

func platformFields(platform service.Platform, mode service.Mode) []string {
	switch platform {
	case service.PlatformAndroid:
		if mode == service.ModeRelease {
			return []string{"android-keystore-file", "android-keystore-alias", "android-keystore-password", "android-key-password"}
		}
	case service.PlatformIOS:
		return []string{"ios-certificate-file", "ios-certificate-password", "ios-profile-file"}
	}
	return nil
}

// RequiredFields lists the signing values to ask for, in submission order.
// Fields the build service already holds valid values for are left out.
func RequiredFields(req *Request, signing service.SigningInfo) []SigningField {
	wanted := map[string]bool{}
	for _, p := range req.Platforms {
		for _, name := range platformFields(p, req.Mode) {
			wanted[name] = true
		}
	}

	var out []SigningField
	for _, name := range service.SigningFields {
		if !wanted[name] || signing.IsValid(name) {
			continue
		}
		f := signingFields[name]
		f.Name = name
		out = append(out, f)
	}
	return out
}

func promptFields(fields []SigningField) []prompt.Field {
	out := make([]prompt.Field, 0, len(fields))
	for _, f := range fields {
		pf := prompt.Field{
			Name:     f.Name,
			Label:    f.Label,
			Hidden:   f.Hidden,
			Required: f.Required,
		}
		if f.IsFile {
			pf.Validate = func(s string) error {
				if !fileExists(s) {
					return fmt.Errorf("unable to find file: %s", s)
				}
				return nil
			}
		}
		out = append(out, pf)
	}
	return out
}
