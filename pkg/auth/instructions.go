package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAccessKeyGuide writes step-by-step instructions for obtaining an access key
func ShowAccessKeyGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "UNSPLASH ACCESS KEY GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Searching the photo API needs an application access key.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 1: Create a developer account")
	fmt.Fprintln(w, "   - Go to https://unsplash.com/developers")
	fmt.Fprintln(w, "   - Sign in or register, then accept the API terms")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 2: Register an application")
	fmt.Fprintln(w, "   - Open 'Your apps' and choose 'New Application'")
	fmt.Fprintln(w, "   - Give it a name and a short description")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 3: Copy the Access Key")
	fmt.Fprintln(w, "   - On the application page, scroll to 'Keys'")
	fmt.Fprintln(w, "   - Copy the 'Access Key' (not the Secret key)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TIPS:")
	fmt.Fprintln(w, "   - Demo applications are limited to 50 requests per hour")
	fmt.Fprintln(w, "   - Set rate_limit.requests_per_hour to stay under that budget")
	fmt.Fprintf(w, "   - For scripts, export %s instead of storing the key\n", AccessKeyEnv)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}

// ShowQuickGuide writes a condensed version for experienced users
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "\nQuick Guide: unsplash.com/developers -> Your apps -> New Application -> Keys -> Access Key")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
