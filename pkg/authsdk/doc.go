/*
Package authsdk is the Go client for the agency gate.

# SDKClient vs Session

An SDKClient talks to the public endpoints and logs in:

	client := authsdk.NewSDKClient("https://agency.example.com")

	health, err := client.GetLiveness(ctx)
	_, err = client.ContactUs(ctx, authsdk.SubmissionRequest{...})

	session, err := client.Login(ctx, "ada@example.com", password)

A Session carries the access token and refreshes it through the refresh
cookie held in the client's jar:

	me, err := session.Me(ctx)
	_, err = session.Consultation(ctx, req)
	_, err = session.LogoutAll(ctx)

# Errors

Every non-2xx response is returned as an *APIError. Gate rejections use the
codes throttled, unauthenticated, forbidden and unavailable; throttled
errors carry RetryAfter:

	_, err := client.HireUs(ctx, req)
	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeThrottled {
		time.Sleep(apiErr.RetryAfter)
	}

errors.Is compares status and code, so errors.Is(err, authsdk.ErrForbidden)
works too.
*/
package authsdk
