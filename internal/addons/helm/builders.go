package helm

// RoleARNAnnotation binds a service account to an IAM role.
const RoleARNAnnotation = "eks.amazonaws.com/role-arn"

// CriticalAddonsOnlyToleration lets a pod run on the tainted system node pool.
func CriticalAddonsOnlyToleration() Values {
	return Values{
		"key":      "CriticalAddonsOnly",
		"operator": "Exists",
	}
}

// SystemTolerations returns the tolerations every add-on pod carries.
func SystemTolerations() []Values {
	return []Values{CriticalAddonsOnlyToleration()}
}

// WithTolerations returns a block carrying the system tolerations, for
// charts that configure each component separately.
func WithTolerations() Values {
	return Values{"tolerations": SystemTolerations()}
}

// ExistingServiceAccount tells a chart to use a pre-created service account.
// The role annotation is repeated so charts that patch the account keep it.
func ExistingServiceAccount(name, roleARN string) Values {
	sa := Values{
		"create": false,
		"name":   name,
	}
	if roleARN != "" {
		sa["annotations"] = Values{RoleARNAnnotation: roleARN}
	}
	return sa
}
