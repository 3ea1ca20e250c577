package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"
)

var plain = strings.NewReplacer("<b>", "", "</b>", "", "<pre>", "", "</pre>", "",
	"&lt;", "<", "&gt;", ">", "&amp;", "&")

// ConsoleNotifier writes reports to a stream with HTML markup removed.
type ConsoleNotifier struct {
	W io.Writer
}

func (c *ConsoleNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	_, err := fmt.Fprintln(c.W, plain.Replace(text))
	return err
}
