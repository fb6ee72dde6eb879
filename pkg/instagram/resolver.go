package instagram

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/retry"
)

// ResolveMedia resolves a post, reel or share URL into its direct media
// URLs. Unknown or private posts yield a not_found error.
func (c *Client) ResolveMedia(ctx context.Context, postURL string) (*MediaLinks, error) {
	log := c.logger.WithContext(ctx).WithField("url", postURL)

	target := postURL
	if IsShareURL(postURL) {
		canonical, err := c.followShare(ctx, postURL)
		if err != nil {
			log.WithError(err).Warn("failed to follow share link")
			return nil, err
		}
		target = canonical
	}

	shortcode, err := ExtractShortcode(target)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInvalidInput, err, "unsupported post url")
	}

	log = log.WithField("shortcode", shortcode)
	log.Debug("resolving media")

	links, err := retry.DoWithResult(ctx, func(ctx context.Context) (*MediaLinks, error) {
		if err := c.limiter.WaitContext(ctx); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeTimeout, err, "rate limiter wait aborted")
		}
		return c.queryShortcode(ctx, shortcode)
	}, c.retry)
	if err != nil {
		log.WithError(err).Warn("media resolution failed")
		return nil, asTyped(err)
	}

	log.DebugWithFields("resolved media", map[string]interface{}{
		"items": len(links.URLList),
		"owner": links.Owner,
	})
	return links, nil
}

// queryShortcode performs one GraphQL lookup
func (c *Client) queryShortcode(ctx context.Context, shortcode string) (*MediaLinks, error) {
	form := graphQLForm(c.docID, shortcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GraphQLEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-IG-App-ID", c.appID)
	req.Header.Set("X-ASBD-ID", ASBDID)
	req.Header.Set("X-FB-LSD", "AVqbxe3J_YA")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", GetReelURL(shortcode))

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var payload GraphQLResponse
	if err := c.decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	if payload.Status == "fail" || len(payload.Errors) > 0 {
		return nil, payloadError(&payload)
	}

	if payload.Data == nil || payload.Data.Media == nil {
		return nil, errs.New(errs.ErrorTypeNotFound, http.StatusNotFound,
			fmt.Sprintf("no media for shortcode %s", shortcode))
	}

	links := payload.Data.Media.toLinks()
	if links.Shortcode == "" {
		links.Shortcode = shortcode
	}
	return links, nil
}

// payloadError maps a failed GraphQL envelope onto a typed error
func payloadError(p *GraphQLResponse) error {
	msg := p.Message
	if msg == "" && len(p.Errors) > 0 {
		msg = p.Errors[0].Message
	}
	if msg == "" {
		msg = "query failed"
	}

	switch {
	case p.RequireLogin:
		return errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, msg)
	case p.Spam || strings.Contains(strings.ToLower(msg), "wait a few minutes"):
		return errs.New(errs.ErrorTypeRateLimit, http.StatusTooManyRequests, msg)
	default:
		return errs.New(errs.ErrorTypeServerError, http.StatusOK, msg)
	}
}

// followShare resolves a /share/ link to the canonical post URL by
// following its redirects.
func (c *Client) followShare(ctx context.Context, shareURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shareURL, nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeInvalidInput, err, "invalid share url")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return "", err
	}

	final := resp.Request.URL.String()
	if IsShareURL(final) {
		return "", errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "share link did not redirect to a post")
	}
	return final, nil
}
