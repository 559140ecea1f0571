package integrations_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/cityposter/pkg/integrations"
)

func ExampleUserAgent() {
	fmt.Println(strings.HasPrefix(integrations.UserAgent(), "cityposter/"))
	// Output:
	// true
}
