package aws

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

const (
	rootAccountUser      = "<root_account>"
	credentialReportPoll = 10
)

// IAMAPI is the minimal interface for IAM user and credential report operations.
type IAMAPI interface {
	ListUsers(ctx context.Context, input *iam.ListUsersInput, opts ...func(*iam.Options)) (*iam.ListUsersOutput, error)
	GetLoginProfile(ctx context.Context, input *iam.GetLoginProfileInput, opts ...func(*iam.Options)) (*iam.GetLoginProfileOutput, error)
	ListMFADevices(ctx context.Context, input *iam.ListMFADevicesInput, opts ...func(*iam.Options)) (*iam.ListMFADevicesOutput, error)
	GenerateCredentialReport(ctx context.Context, input *iam.GenerateCredentialReportInput, opts ...func(*iam.Options)) (*iam.GenerateCredentialReportOutput, error)
	GetCredentialReport(ctx context.Context, input *iam.GetCredentialReportInput, opts ...func(*iam.Options)) (*iam.GetCredentialReportOutput, error)
}

// IAMCollector describes IAM users and the root account. IAM is global, so facts
// carry the region "global".
type IAMCollector struct {
	client       IAMAPI
	pollInterval time.Duration
}

// NewIAMCollector creates a collector for IAM.
func NewIAMCollector(client IAMAPI) *IAMCollector {
	return &IAMCollector{client: client, pollInterval: time.Second}
}

// Service returns the service this collector describes.
func (c *IAMCollector) Service() finding.Service {
	return finding.ServiceIAM
}

// Collect lists users with console access and MFA device counts, plus one root
// fact from the credential report. A report that cannot be produced drops only
// the root fact.
func (c *IAMCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	users, err := c.listUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list IAM users: %w", err)
	}

	facts := make([]finding.ResourceFact, 0, len(users)+1)
	for _, u := range users {
		name := deref(u.UserName)
		attrs := finding.Attributes{}

		console, err := c.hasConsoleAccess(ctx, name)
		if err != nil {
			slog.Warn("Failed to get login profile", "user", name, "error", err)
		} else {
			attrs[finding.AttrConsoleAccess] = console
		}
		mfa, err := c.client.ListMFADevices(ctx, &iam.ListMFADevicesInput{UserName: &name})
		if err != nil {
			slog.Warn("Failed to list MFA devices", "user", name, "error", err)
		} else {
			attrs[finding.AttrMFADevices] = len(mfa.MFADevices)
		}
		if u.PasswordLastUsed != nil {
			attrs[finding.AttrPasswordLastUsed] = u.PasswordLastUsed.UTC()
		}

		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceIAM,
			Type:       finding.TypeUser,
			ResourceID: name,
			Region:     globalRegion,
			Attrs:      attrs,
		})
	}

	root, err := c.rootFact(ctx)
	if err != nil {
		slog.Warn("Skipping root account activity", "error", err)
		return facts, nil
	}
	return append(facts, root), nil
}

func (c *IAMCollector) listUsers(ctx context.Context) ([]iamtypes.User, error) {
	var users []iamtypes.User
	paginator := iam.NewListUsersPaginator(c.client, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		users = append(users, page.Users...)
	}
	return users, nil
}

func (c *IAMCollector) hasConsoleAccess(ctx context.Context, user string) (bool, error) {
	_, err := c.client.GetLoginProfile(ctx, &iam.GetLoginProfileInput{UserName: &user})
	if hasErrorCode(err, "NoSuchEntity") {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// rootFact generates the credential report and reads the root row from it.
func (c *IAMCollector) rootFact(ctx context.Context) (finding.ResourceFact, error) {
	content, err := c.credentialReport(ctx)
	if err != nil {
		return finding.ResourceFact{}, err
	}

	row, err := rootRow(content)
	if err != nil {
		return finding.ResourceFact{}, err
	}
	attrs := finding.Attributes{}
	// "N/A" and "no_information" mean the root password has not been used.
	if t, err := time.Parse(time.RFC3339, row["password_last_used"]); err == nil {
		attrs[finding.AttrPasswordLastUsed] = t.UTC()
	}
	return finding.ResourceFact{
		Service:    finding.ServiceIAM,
		Type:       finding.TypeRoot,
		ResourceID: "root",
		Region:     globalRegion,
		Attrs:      attrs,
	}, nil
}

func (c *IAMCollector) credentialReport(ctx context.Context) ([]byte, error) {
	for attempt := 0; attempt < credentialReportPoll; attempt++ {
		gen, err := c.client.GenerateCredentialReport(ctx, &iam.GenerateCredentialReportInput{})
		if err != nil {
			return nil, fmt.Errorf("generate credential report: %w", err)
		}
		if gen.State == iamtypes.ReportStateTypeComplete {
			out, err := c.client.GetCredentialReport(ctx, &iam.GetCredentialReportInput{})
			if err != nil {
				return nil, fmt.Errorf("get credential report: %w", err)
			}
			return out.Content, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil, fmt.Errorf("credential report not ready after %d attempts", credentialReportPoll)
}

func rootRow(content []byte) (map[string]string, error) {
	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse credential report: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("credential report has no rows")
	}
	header := records[0]
	for _, rec := range records[1:] {
		if len(rec) == 0 || rec[0] != rootAccountUser {
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		return row, nil
	}
	return nil, fmt.Errorf("credential report has no %s row", rootAccountUser)
}
