package clients

import "strings"

// GraphQL queries for the forum gateway, transcribed from the requests the
// website itself issues.

// QueryForumInfo maps an article's canonical URL to its forum ID.
const QueryForumInfo = `
query GetForumInfo ($contextUri: String!) {
    getForumByContextUri (contextUri: $contextUri) {
        id
    }
}`

// QueryLegacyProfile resolves a legacy numeric member ID to profile data.
const QueryLegacyProfile = `
query LegacyProfilePublic ($legacyMemberId: ID) {
    getCommunityMemberPublic (legacyMemberId: $legacyMemberId) {
        name
        memberId
        memberCreatedAt
    }
}`

// QueryMemberRelationships fetches both directions of the follow graph.
const QueryMemberRelationships = `
query MemberRelationshipsPublic ($memberId: ID!) {
    getMemberRelationshipsPublic (memberId: $memberId) {
        follower {
            member {
                legacyId
                memberId
                name
                memberCreatedAt
            }
        }
        followees {
            member {
                legacyId
                memberId
                name
                memberCreatedAt
            }
        }
    }
}`

// MaxReplyDepth is how deep the gateway nests reply trees in one response.
// Replies below this depth are not delivered by the backend.
const MaxReplyDepth = 32

const postingInfoFragment = `
fragment PostingInfo on Posting {
  id
  author {
    legacyData {
      legacyCommunityIdentity
    }
  }
  legacy {
    postingId
  }
  title
  text
  history {
    created
  }
  reactions {
    aggregated {
      name
      value
      statistic
    }
  }
}`

// QueryForumRootPostings returns the paginated root-postings query with the
// reply selection nested to MaxReplyDepth. The gateway has no recursive
// fragments, so the nesting is spelled out.
func QueryForumRootPostings() string {
	selection := "...PostingInfo"
	for i := 0; i < MaxReplyDepth; i++ {
		selection = "...PostingInfo\nreplies {\n" + selection + "\n}"
	}

	var b strings.Builder
	b.WriteString(postingInfoFragment)
	b.WriteString(`
query ThreadsByForumQuery($id: String!, $nextCursor: String) {
  getForumRootPostingsV2(
    getForumRootPostingsParamsV2: {
      forumId: $id
      sortOrder: ByTime
      first: Max
      after: $nextCursor
    }
  ) {
    pageInfo {
      nextCursor
      hasNextPage
    }
    edges {
      node {
`)
	b.WriteString(selection)
	b.WriteString(`
      }
      cursor
    }
  }
}`)
	return b.String()
}
